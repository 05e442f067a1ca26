package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/market"
	"github.com/bobmcallan/folio/internal/storage/marketfs"
)

const testISIN = "SE0000000001"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeTestConfig writes a config with storage under a temp dir and clears
// any API key from the environment.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("FOLIO_EODHD_API_KEY", "")
	t.Setenv("FOLIO_DATA_PATH", dataDir)
	t.Setenv("FOLIO_BASE_CURRENCY", "")

	path := writeFile(t, dir, "folio.toml", `
environment = "test"
base_currency = "sek"

[storage]
path = "`+filepath.ToSlash(dataDir)+`"

[logging]
level = "disabled"

[calculation]
xirr_method = "portfolio"
cache_snapshots = true
`)
	return path, dataDir
}

const testPrices = `{
  "base_currency": "SEK",
  "current": {"SE0000000001": 110},
  "history": {"SE0000000001": {"2023-01-01": 100, "2024-01-01": 110}},
  "fx": {}
}`

const testTransactions = `[
  {"date": "2023-01-01", "bank": "AVANZA", "account": "ISK", "type": "buy", "name": "Acme",
   "quantity": 10, "amount": -1000, "currency": "SEK", "isin": "SE0000000001"},
  {"date": "2023-01-01T09:30:00Z", "bank": "AVANZA", "account": "ISK", "type": "deposit",
   "name": "Deposit", "amount": 1000}
]`

func TestNewApp_InitializesAllServices(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)

	a, err := NewApp(Options{ConfigPath: configPath})
	require.NoError(t, err)

	assert.Equal(t, "SEK", a.Config.BaseCurrency)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Store)
	assert.Nil(t, a.EODHDClient)
	assert.IsType(t, &market.Service{}, a.Market)
	assert.NotNil(t, a.CashFlow)
	assert.NotNil(t, a.Portfolio)
	assert.False(t, a.StartupTime.IsZero())

	assert.DirExists(t, filepath.Join(dataDir, "prices"))
	assert.DirExists(t, filepath.Join(dataDir, "snapshots"))
}

func TestNewApp_StaticPrices(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	prices := writeFile(t, t.TempDir(), "prices.json", testPrices)

	a, err := NewApp(Options{ConfigPath: configPath, PricesPath: prices})
	require.NoError(t, err)
	assert.IsType(t, &market.StaticProvider{}, a.Market)
}

func TestNewApp_BadPricesFile(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := NewApp(Options{ConfigPath: configPath, PricesPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("FOLIO_CONFIG", "/etc/folio/folio.toml")
	assert.Equal(t, "explicit.toml", resolveConfigPath("explicit.toml"))
	assert.Equal(t, "/etc/folio/folio.toml", resolveConfigPath(""))
}

func TestLoadTransactions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "txs.json", testTransactions)

	txs, err := LoadTransactions(path)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Same date and bank: the empty ISIN sorts first.
	assert.Equal(t, models.TxDeposit, txs[0].Type)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, models.TxBuy, txs[1].Type)
	assert.True(t, txs[1].Quantity.Valid)
	assert.Equal(t, "10", txs[1].Quantity.Decimal.String())
}

func TestLoadTransactions_Errors(t *testing.T) {
	_, err := LoadTransactions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "bad.json", `[{"date": "yesterday"}]`)
	_, err = LoadTransactions(path)
	assert.Error(t, err)
}

func TestApp_RunWithStaticPrices(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)
	prices := writeFile(t, t.TempDir(), "prices.json", testPrices)
	txPath := writeFile(t, t.TempDir(), "txs.json", testTransactions)

	a, err := NewApp(Options{ConfigPath: configPath, PricesPath: prices})
	require.NoError(t, err)

	txs, err := LoadTransactions(txPath)
	require.NoError(t, err)

	result, err := a.Portfolio.Run(context.Background(), txs, models.RunOptions{
		AsOf: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Performance.XIRR)
	assert.InDelta(t, 10.0, *result.Performance.XIRR, 0.1)
	assert.True(t, result.Overview.TotalCurrentHoldings.Equal(decimal.NewFromInt(1100)), result.Overview.TotalCurrentHoldings.String())

	// The reconciled ledger is cached in the file store.
	entries, err := os.ReadDir(filepath.Join(dataDir, "snapshots"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWarmPrices(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	prices := writeFile(t, t.TempDir(), "prices.json", testPrices)
	txPath := writeFile(t, t.TempDir(), "txs.json", testTransactions)

	a, err := NewApp(Options{ConfigPath: configPath, PricesPath: prices})
	require.NoError(t, err)
	txs, err := LoadTransactions(txPath)
	require.NoError(t, err)

	assert.Equal(t, 1, a.WarmPrices(context.Background(), txs))
	assert.Equal(t, 0, a.WarmPrices(context.Background(), txs[:1]))

	t.Setenv("FOLIO_WARM_CACHE", "off")
	assert.Equal(t, 0, a.WarmPrices(context.Background(), txs))
}

func TestWarmPrices_OfflineEmptyStore(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)
	a, err := NewApp(Options{ConfigPath: configPath})
	require.NoError(t, err)

	// Offline with an empty store nothing is fetched or written.
	txs := []models.Transaction{{
		Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Type: models.TxBuy, ISIN: testISIN, Currency: "SEK",
	}}
	assert.Equal(t, 1, a.WarmPrices(context.Background(), txs))

	store, err := marketfs.NewStore(a.Logger, dataDir)
	require.NoError(t, err)
	series, err := store.GetPriceSeries(context.Background(), testISIN)
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestInstrumentsOf(t *testing.T) {
	txs := []models.Transaction{
		{Type: models.TxBuy, ISIN: "B", Currency: "usd"},
		{Type: models.TxSell, ISIN: "A", Currency: "SEK"},
		{Type: models.TxBuy, ISIN: "B", Currency: "USD"},
		{Type: models.TxDividend, ISIN: "C", Currency: "EUR"},
		{Type: models.TxDeposit},
	}

	isins, currencies := instrumentsOf(txs, "sek")
	assert.Equal(t, []string{"A", "B"}, isins)
	assert.Equal(t, []string{"USD"}, currencies)
}
