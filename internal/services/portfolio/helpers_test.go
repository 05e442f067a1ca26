package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// fakeMarket is an in-memory MarketDataProvider.
type fakeMarket struct {
	current map[string]decimal.NullDecimal
	history map[string]map[time.Time]decimal.Decimal
	fx      map[string]decimal.Decimal
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		current: make(map[string]decimal.NullDecimal),
		history: make(map[string]map[time.Time]decimal.Decimal),
		fx:      make(map[string]decimal.Decimal),
	}
}

func (m *fakeMarket) CurrentPrice(_ context.Context, isin string) (decimal.NullDecimal, error) {
	return m.current[isin], nil
}

func (m *fakeMarket) HistoricalPrices(_ context.Context, isin string) (map[time.Time]decimal.Decimal, error) {
	return m.history[isin], nil
}

func (m *fakeMarket) FXRate(_ context.Context, currency string, _ time.Time) (decimal.Decimal, error) {
	rate, ok := m.fx[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", currency)
	}
	return rate, nil
}

func (m *fakeMarket) setPrice(isin, price string) {
	m.current[isin] = decimal.NewNullDecimal(dec(price))
}

func (m *fakeMarket) setHistory(isin string, points map[time.Time]string) {
	series := make(map[time.Time]decimal.Decimal, len(points))
	for d, p := range points {
		series[d] = dec(p)
	}
	m.history[isin] = series
}

// fakeSnapshots is an in-memory SnapshotStore that counts calls.
type fakeSnapshots struct {
	ledgers map[string]*models.Ledger
	gets    int
	saves   int
}

func (s *fakeSnapshots) GetSnapshot(_ context.Context, key string) (*models.Ledger, error) {
	s.gets++
	return s.ledgers[key], nil
}

func (s *fakeSnapshots) SaveSnapshot(_ context.Context, key string, ledger *models.Ledger) error {
	s.saves++
	if s.ledgers == nil {
		s.ledgers = make(map[string]*models.Ledger)
	}
	s.ledgers[key] = ledger
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func newTestDiag() *common.Diagnostics {
	return common.NewDiagnostics(common.NewSilentLogger())
}

func deposit(date time.Time, amount string) models.Transaction {
	return models.Transaction{
		Date:    date,
		Bank:    models.BankAvanza,
		Account: "ISK",
		Type:    models.TxDeposit,
		Name:    "Deposit",
		Amount:  nd(amount),
	}
}

func buy(date time.Time, isin, qty, amount string) models.Transaction {
	return models.Transaction{
		Date:     date,
		Bank:     models.BankAvanza,
		Account:  "ISK",
		Type:     models.TxBuy,
		Name:     "Stock " + isin,
		Quantity: nd(qty),
		Amount:   nd(amount),
		Currency: "SEK",
		ISIN:     isin,
	}
}

func sell(date time.Time, isin, qty, amount string) models.Transaction {
	tx := buy(date, isin, qty, amount)
	tx.Type = models.TxSell
	return tx
}

func dividend(date time.Time, isin, amount string) models.Transaction {
	return models.Transaction{
		Date:    date,
		Bank:    models.BankAvanza,
		Account: "ISK",
		Type:    models.TxDividend,
		Name:    "Stock " + isin,
		Amount:  nd(amount),
		ISIN:    isin,
	}
}

// routed builds a reconciled ledger from txs.
func routed(txs ...models.Transaction) (*models.Ledger, *common.Diagnostics) {
	diag := newTestDiag()
	logger := common.NewSilentLogger()
	ledger := models.NewLedger()
	NewRouter(diag, logger).Route(ledger, txs)
	engine := NewCostBasisEngine(diag, logger)
	for _, a := range ledger.SortedAssets() {
		engine.Apply(a)
	}
	return ledger, diag
}

func withType(tx models.Transaction, t models.TransactionType) models.Transaction {
	tx.Type = t
	return tx
}
