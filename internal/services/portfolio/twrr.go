package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/cashflow"
)

// subPeriod is one TWR measurement window. Transactions dated in
// [start, end) belong to it; the final window also includes end itself.
type subPeriod struct {
	start time.Time
	end   time.Time
	last  bool
}

// cutoff is the exclusive upper bound for transactions in the window.
func (p subPeriod) cutoff() time.Time {
	if p.last {
		return p.end.AddDate(0, 0, 1)
	}
	return p.end
}

// partitionSubPeriods splits the window at each external flow date. Each
// completed pair of dates closes a sub-period and its end starts the next; an
// open final sub-period is closed at windowEnd. With no flows the whole
// window is one sub-period.
func partitionSubPeriods(flowDates []time.Time, windowStart, windowEnd time.Time) []subPeriod {
	var periods []subPeriod
	var current []time.Time

	for _, d := range flowDates {
		if len(current) > 0 && d.Equal(current[len(current)-1]) {
			continue
		}
		current = append(current, d)
		if len(current) == 2 {
			periods = append(periods, subPeriod{start: current[0], end: current[1]})
			current = []time.Time{current[1]}
		}
	}

	if len(current) == 1 {
		periods = append(periods, subPeriod{start: current[0], end: windowEnd})
	}
	if len(periods) == 0 {
		periods = append(periods, subPeriod{start: windowStart, end: windowEnd})
	}
	periods[len(periods)-1].last = true
	return periods
}

// SubPeriodReturn computes one sub-period's return. The first sub-period is
// measured against its own external flow (plus any opening value); later ones
// against the prior end value with the window's external flow removed.
func SubPeriodReturn(first bool, startValue, endValue, netExternalFlow decimal.Decimal) (decimal.Decimal, error) {
	if startValue.IsZero() {
		return decimal.Zero, ErrZeroStartValue
	}
	gain := endValue.Sub(startValue)
	if !first {
		gain = gain.Sub(netExternalFlow)
	}
	return gain.Div(startValue), nil
}

// ChainReturns compounds sub-period returns: Π(1+r) − 1.
func ChainReturns(returns []decimal.Decimal) decimal.Decimal {
	growth := decimal.NewFromInt(1)
	for _, r := range returns {
		growth = growth.Mul(decimal.NewFromInt(1).Add(r))
	}
	return growth.Sub(decimal.NewFromInt(1))
}

// TWREngine computes time-weighted returns by replaying transactions window by
// window and revaluing the portfolio at each external-flow boundary.
type TWREngine struct {
	market       interfaces.MarketDataProvider
	baseCurrency string
	diag         *common.Diagnostics
	logger       *common.Logger
	now          func() time.Time
}

// NewTWREngine creates an engine valuing in baseCurrency.
func NewTWREngine(market interfaces.MarketDataProvider, baseCurrency string, diag *common.Diagnostics, logger *common.Logger) *TWREngine {
	return &TWREngine{
		market:       market,
		baseCurrency: strings.ToUpper(baseCurrency),
		diag:         diag,
		logger:       logger,
		now:          time.Now,
	}
}

// Calculate runs the TWR over txs, which must be sorted by date. A missing FX
// rate, an unpriceable holding or a zero start value aborts the calculation.
func (e *TWREngine) Calculate(ctx context.Context, txs []models.Transaction, filter models.TWRFilter) (*models.TWRResult, error) {
	txs = filterByBank(txs, filter.Bank)
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	windowEnd := models.DateOf(e.now())
	if !filter.To.IsZero() {
		windowEnd = models.DateOf(filter.To)
	}
	windowStart := txs[0].Date
	if !filter.From.IsZero() {
		windowStart = models.DateOf(filter.From)
	}
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("TWR window ends %s before it starts %s",
			windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}

	var flowDates []time.Time
	for _, tx := range txs {
		if tx.Type.IsExternalFlow() && !tx.Date.Before(windowStart) && !tx.Date.After(windowEnd) {
			flowDates = append(flowDates, tx.Date)
		}
	}
	periods := partitionSubPeriods(flowDates, windowStart, windowEnd)

	ledger := models.NewLedger()
	router := NewRouter(e.diag, e.logger)

	// Transactions before the first sub-period are replayed as state. Their
	// value opens the first sub-period only when a From date cut the window or
	// the window has no external flows.
	next := 0
	for next < len(txs) && txs[next].Date.Before(periods[0].start) {
		router.Apply(ledger, txs[next])
		next++
	}
	opening := decimal.Zero
	if next > 0 && (!filter.From.IsZero() || len(flowDates) == 0) {
		holdings, err := e.holdingsValue(ctx, ledger, periods[0].start)
		if err != nil {
			return nil, err
		}
		opening = holdings.Add(cashflow.Balance(ledger.Overview.CashFlows, periods[0].start))
	}

	result := &models.TWRResult{}
	returns := make([]decimal.Decimal, 0, len(periods))
	var prevEnd decimal.Decimal

	for i, p := range periods {
		cutoff := p.cutoff()
		netFlow := decimal.Zero
		dividends := decimal.Zero

		for next < len(txs) && txs[next].Date.Before(cutoff) {
			tx := txs[next]
			next++
			if !router.Apply(ledger, tx) {
				continue
			}
			switch {
			case tx.Type.IsExternalFlow():
				netFlow = netFlow.Add(tx.AmountOrZero())
			case tx.Type == models.TxDividend:
				dividends = dividends.Add(tx.AmountOrZero())
			}
		}

		holdings, err := e.holdingsValue(ctx, ledger, p.end)
		if err != nil {
			return nil, err
		}

		// Holdings, the cash balance of the whole ledger to date, and the
		// dividends received in this window.
		cash := cashflow.Balance(ledger.Overview.CashFlows, cutoff)
		endValue := holdings.Add(cash).Add(dividends)

		startValue := prevEnd
		if i == 0 {
			startValue = opening.Add(netFlow)
		}
		r, err := SubPeriodReturn(i == 0, startValue, endValue, netFlow)
		if err != nil {
			return nil, fmt.Errorf("sub-period %s to %s: %w",
				p.start.Format("2006-01-02"), p.end.Format("2006-01-02"), err)
		}

		result.SubPeriods = append(result.SubPeriods, models.SubPeriodReturn{
			Start:           p.start,
			End:             p.end,
			StartValue:      startValue,
			EndValue:        endValue,
			NetExternalFlow: netFlow,
			Dividends:       dividends,
			Return:          r,
		})
		returns = append(returns, r)
		prevEnd = endValue

		e.logger.Debug().
			Time("start", p.start).
			Time("end", p.end).
			Str("start_value", startValue.String()).
			Str("end_value", endValue.String()).
			Str("net_flow", netFlow.String()).
			Str("return", r.String()).
			Msg("TWR sub-period measured")
	}

	result.Return = ChainReturns(returns)
	return result, nil
}

// holdingsValue prices every held asset at date, in the base currency.
func (e *TWREngine) holdingsValue(ctx context.Context, ledger *models.Ledger, date time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, asset := range ledger.SortedAssets() {
		if !asset.IsHeld() {
			continue
		}
		price, err := e.priceAt(ctx, asset, date)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(price.Mul(asset.CurrentNumberOfShares))
	}
	return total, nil
}

// priceAt resolves a per-share price for asset on date. The historical series
// is preferred and converted to the base currency; without a series the last
// trade's implied price is used.
func (e *TWREngine) priceAt(ctx context.Context, asset *models.Asset, date time.Time) (decimal.Decimal, error) {
	series, err := e.market.HistoricalPrices(ctx, asset.ISIN)
	if err != nil {
		e.logger.Warn().Err(err).Str("isin", asset.ISIN).Msg("Historical price lookup failed")
		series = nil
	}

	if len(series) == 0 {
		price, ok := impliedTradePrice(asset)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s (%s) on %s", ErrMissingPrice,
				asset.Name, asset.ISIN, date.Format("2006-01-02"))
		}
		e.diag.Notice("No price history for %s (%s); using last trade price %s",
			asset.Name, asset.ISIN, price.StringFixed(4))
		return price, nil
	}

	price := lookupPrice(series, date)
	if asset.Currency == "" || strings.EqualFold(asset.Currency, e.baseCurrency) {
		return price, nil
	}

	rate, err := e.market.FXRate(ctx, asset.Currency, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s to %s on %s: %v", ErrMissingFXRate,
			asset.Currency, e.baseCurrency, date.Format("2006-01-02"), err)
	}
	return price.Mul(rate), nil
}

// lookupPrice returns the price on date, else the first later price, else the
// latest price in the series.
func lookupPrice(series map[time.Time]decimal.Decimal, date time.Time) decimal.Decimal {
	date = models.DateOf(date)
	if p, ok := series[date]; ok {
		return p
	}

	dates := make([]time.Time, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	idx := sort.Search(len(dates), func(i int) bool { return dates[i].After(date) })
	if idx < len(dates) {
		return series[dates[idx]]
	}
	return series[dates[len(dates)-1]]
}

// impliedTradePrice derives |amount|/|quantity| from the asset's most recent
// buy or sell.
func impliedTradePrice(asset *models.Asset) (decimal.Decimal, bool) {
	for i := len(asset.Transactions) - 1; i >= 0; i-- {
		tx := asset.Transactions[i]
		if !tx.Type.IsTrade() {
			continue
		}
		qty := tx.QuantityOrZero().Abs()
		if qty.IsZero() {
			continue
		}
		return tx.AmountOrZero().Abs().Div(qty), true
	}
	return decimal.Zero, false
}

func filterByBank(txs []models.Transaction, bank models.Bank) []models.Transaction {
	if bank == "" {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Bank == bank {
			out = append(out, tx)
		}
	}
	return out
}
