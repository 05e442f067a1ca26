// Package portfolio provides the accounting and performance engine: routing
// transactions into a ledger, weighted-average cost basis, valuation, XIRR and
// time-weighted return.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/cashflow"
)

// Service implements PortfolioService
type Service struct {
	market       interfaces.MarketDataProvider
	snapshots    interfaces.SnapshotStore
	cashflow     interfaces.CashFlowService
	baseCurrency string
	logger       *common.Logger
	now          func() time.Time
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service. snapshots may be nil to disable
// snapshot caching.
func NewService(
	market interfaces.MarketDataProvider,
	snapshots interfaces.SnapshotStore,
	cashflowService interfaces.CashFlowService,
	baseCurrency string,
	logger *common.Logger,
) *Service {
	return &Service{
		market:       market,
		snapshots:    snapshots,
		cashflow:     cashflowService,
		baseCurrency: baseCurrency,
		logger:       logger,
		now:          time.Now,
	}
}

// Run reconciles txs into a ledger, values current holdings and computes gains
// and XIRR. The returned error is only set for fatal conditions; everything
// else is reported in Result.Diagnostics.
func (s *Service) Run(ctx context.Context, txs []models.Transaction, opts models.RunOptions) (*models.Result, error) {
	method := models.XIRRPortfolio
	if opts.XIRRMethod != "" {
		m, err := cashflow.ParseMethod(opts.XIRRMethod)
		if err != nil {
			return nil, err
		}
		method = m
	}
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	runID := uuid.NewString()
	logger := s.logger.WithRun(runID)
	diag := common.NewDiagnostics(logger)

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = models.DateOf(asOf)

	logger.Info().
		Int("transactions", len(txs)).
		Str("xirr_method", string(method)).
		Time("as_of", asOf).
		Msg("Calculation run started")

	ledger, err := s.reconcile(ctx, sortedCopy(txs), diag, logger)
	if err != nil {
		return nil, err
	}

	calc := NewCalculator(s.market, s.cashflow, diag, logger)
	missing := calc.Valuate(ctx, ledger, asOf)

	perf, err := calc.Performance(ledger, method)
	if err != nil {
		return nil, fmt.Errorf("failed to compute performance: %w", err)
	}
	calc.HoldingXIRR(ledger)

	warnings := diag.Count(models.SeverityWarning)
	notices := diag.Count(models.SeverityNotice)

	result := &models.Result{
		RunID:         runID,
		AsOf:          asOf,
		BaseCurrency:  s.baseCurrency,
		Assets:        calc.Assets(ledger, opts.CurrentHoldingsOnly),
		Overview:      ledger.Overview,
		Performance:   perf,
		MissingPrices: missing,
		Capital:       s.cashflow.CapitalSummary(ledger.Overview),
		Diagnostics:   diag.Drain(),
	}

	logger.Info().
		Int("assets", len(result.Assets)).
		Int("missing_prices", len(missing)).
		Int("warnings", warnings).
		Int("notices", notices).
		Msg("Calculation run complete")

	return result, nil
}

// TWR computes the time-weighted return of txs within filter.
func (s *Service) TWR(ctx context.Context, txs []models.Transaction, filter models.TWRFilter) (*models.TWRResult, error) {
	runID := uuid.NewString()
	logger := s.logger.WithRun(runID)
	diag := common.NewDiagnostics(logger)

	engine := NewTWREngine(s.market, s.baseCurrency, diag, logger)
	engine.now = s.now

	result, err := engine.Calculate(ctx, sortedCopy(txs), filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compute TWR: %w", err)
	}
	result.Diagnostics = diag.Drain()

	logger.Info().
		Int("sub_periods", len(result.SubPeriods)).
		Str("twr", result.Return.String()).
		Msg("TWR computed")

	return result, nil
}

// reconcile routes txs and applies cost basis per asset, reusing a cached
// snapshot for identical input when a snapshot store is configured.
func (s *Service) reconcile(ctx context.Context, txs []models.Transaction, diag *common.Diagnostics, logger *common.Logger) (*models.Ledger, error) {
	var key string
	if s.snapshots != nil {
		digest, err := models.TransactionsDigest(txs)
		if err != nil {
			return nil, err
		}
		key = digest
		cached, err := s.snapshots.GetSnapshot(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Snapshot unreadable, rebuilding")
		}
		if cached != nil {
			logger.Debug().Str("key", key).Msg("Using cached snapshot")
			for _, d := range cached.Diagnostics {
				diag.Add(d.Severity, "%s", d.Message)
			}
			return cached, nil
		}
	}

	ledger := models.NewLedger()
	before := diag.Len()

	NewRouter(diag, logger).Route(ledger, txs)
	engine := NewCostBasisEngine(diag, logger)
	for _, asset := range ledger.SortedAssets() {
		engine.Apply(asset)
	}
	ledger.Overview.SortCashFlows()

	if s.snapshots != nil {
		ledger.Diagnostics = diag.Entries()[before:]
		if err := s.snapshots.SaveSnapshot(ctx, key, ledger); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to cache snapshot")
		}
	}

	return ledger, nil
}

func sortedCopy(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)
	models.SortTransactions(out)
	return out
}
