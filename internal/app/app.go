package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/cashflow"
	"github.com/bobmcallan/folio/internal/services/market"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/storage/marketfs"
)

// App holds the initialized configuration, storage, clients and services.
// It is the shared core behind every cmd/folio subcommand.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       *marketfs.Store
	EODHDClient interfaces.EODHDClient
	Market      interfaces.MarketDataProvider
	CashFlow    interfaces.CashFlowService
	Portfolio   interfaces.PortfolioService
	StartupTime time.Time
}

// Options selects the files an App is built from. Empty fields use the
// default resolution logic.
type Options struct {
	ConfigPath string
	PricesPath string
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, FOLIO_CONFIG, then the binary
// dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}
	return configPath
}

// NewApp initializes configuration, logging, the file store, the EODHD client
// and the calculation services. With a prices file the static provider
// replaces live market data.
func NewApp(opts Options) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := marketfs.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var eodhdClient interfaces.EODHDClient
	if config.Clients.EODHD.APIKey != "" {
		clientOpts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		}
		if config.Clients.EODHD.BaseURL != "" {
			clientOpts = append(clientOpts, eodhd.WithBaseURL(config.Clients.EODHD.BaseURL))
		}
		eodhdClient = eodhd.NewClient(config.Clients.EODHD.APIKey, clientOpts...)
	} else {
		logger.Warn().Msg("EODHD API key not configured - using stored prices only")
	}

	var marketData interfaces.MarketDataProvider
	if opts.PricesPath != "" {
		static, err := market.LoadStaticPrices(opts.PricesPath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", opts.PricesPath).Msg("Using static price file")
		marketData = static
	} else {
		marketData = market.NewService(eodhdClient, store, config.BaseCurrency, config.Calculation.GetPriceCacheTTL(), logger)
	}

	var snapshots interfaces.SnapshotStore
	if config.Calculation.CacheSnapshots {
		snapshots = store
	}

	cashflowService := cashflow.NewService(logger)
	portfolioService := portfolio.NewService(marketData, snapshots, cashflowService, config.BaseCurrency, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		EODHDClient: eodhdClient,
		Market:      marketData,
		CashFlow:    cashflowService,
		Portfolio:   portfolioService,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}
