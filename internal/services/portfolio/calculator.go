package portfolio

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Calculator values current holdings and rolls asset results up to the portfolio.
type Calculator struct {
	market   interfaces.MarketDataProvider
	cashflow interfaces.CashFlowService
	diag     *common.Diagnostics
	logger   *common.Logger
}

// NewCalculator creates a calculator for one run.
func NewCalculator(market interfaces.MarketDataProvider, cashflow interfaces.CashFlowService, diag *common.Diagnostics, logger *common.Logger) *Calculator {
	return &Calculator{
		market:   market,
		cashflow: cashflow,
		diag:     diag,
		logger:   logger,
	}
}

// Valuate prices every held asset at asOf, records a current_holding cash flow
// for each valued asset and computes the holdings weighting. Assets without a
// current price are returned for the caller to report; they never fail the run.
// Current prices are taken to be in the base currency.
func (c *Calculator) Valuate(ctx context.Context, ledger *models.Ledger, asOf time.Time) []models.MissingPrice {
	overview := ledger.Overview
	resetValuation(ledger)

	var missing []models.MissingPrice
	for _, asset := range ledger.SortedAssets() {
		if asset.ISIN == "" || !asset.IsHeld() {
			continue
		}

		price, err := c.market.CurrentPrice(ctx, asset.ISIN)
		if err != nil {
			c.logger.Warn().Err(err).Str("isin", asset.ISIN).Msg("Current price lookup failed")
		}
		if err != nil || !price.Valid {
			c.diag.Notice("No current price for %s (%s)", asset.Name, asset.ISIN)
			missing = append(missing, models.MissingPrice{
				ISIN:   asset.ISIN,
				Name:   asset.Name,
				Shares: asset.CurrentNumberOfShares,
			})
			continue
		}

		value := asset.CurrentNumberOfShares.Mul(price.Decimal)
		asset.CurrentPricePerShare = price
		asset.CurrentValueOfShares = decimal.NewNullDecimal(value)
		asset.UnrealizedGainLoss = value.Sub(asset.CostBasis)

		overview.TotalCurrentHoldings = overview.TotalCurrentHoldings.Add(value)
		overview.CashFlows = append(overview.CashFlows, models.CashFlow{
			Date:    asOf,
			Amount:  value,
			Name:    asset.Name,
			Type:    models.TxCurrentHolding,
			Account: models.CurrentHoldingAccount,
			Bank:    models.BankNotSpecified,
			ISIN:    asset.ISIN,
		})
	}

	c.weigh(ledger)
	overview.SortCashFlows()

	c.logger.Debug().
		Str("total_current_holdings", overview.TotalCurrentHoldings.String()).
		Int("missing_prices", len(missing)).
		Msg("Holdings valued")

	return missing
}

// weigh sets each valued asset's share of total holdings value, in percent
// rounded to four decimals.
func (c *Calculator) weigh(ledger *models.Ledger) {
	total := decimal.Zero
	for _, asset := range ledger.Assets {
		if v := asset.CurrentValue(); v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return
	}
	for isin, asset := range ledger.Assets {
		if v := asset.CurrentValue(); v.IsPositive() {
			ledger.Overview.CurrentHoldingsWeighting[isin] = v.Div(total).Mul(hundred).Round(4)
		}
	}
}

// resetValuation clears the results of any earlier valuation so Valuate can
// be repeated on the same ledger.
func resetValuation(ledger *models.Ledger) {
	overview := ledger.Overview
	flows := overview.CashFlows[:0]
	for _, cf := range overview.CashFlows {
		if cf.Type != models.TxCurrentHolding {
			flows = append(flows, cf)
		}
	}
	overview.CashFlows = flows
	overview.TotalCurrentHoldings = decimal.Zero
	overview.CurrentHoldingsWeighting = make(map[string]decimal.Decimal)

	for _, asset := range ledger.Assets {
		asset.CurrentPricePerShare = decimal.NullDecimal{}
		asset.CurrentValueOfShares = decimal.NullDecimal{}
		asset.UnrealizedGainLoss = decimal.Zero
		asset.XIRR = nil
	}
}

// Performance sums realized and unrealized gains over all assets and computes
// the portfolio XIRR for method. Only an unknown method is an error;
// non-convergence leaves XIRR unset and adds a notice.
func (c *Calculator) Performance(ledger *models.Ledger, method models.XIRRMethod) (models.AssetPerformance, error) {
	perf := models.AssetPerformance{}
	for _, asset := range ledger.Assets {
		perf.RealizedGainLoss = perf.RealizedGainLoss.Add(asset.RealizedGainLoss)
		perf.UnrealizedGainLoss = perf.UnrealizedGainLoss.Add(asset.UnrealizedGainLoss)
	}

	if method == models.XIRRHolding {
		// Holding XIRR is per asset; see HoldingXIRR.
		return perf, nil
	}

	flows, err := c.cashflow.SelectXIRRFlows(ledger.Overview.CashFlows, method, "")
	if err != nil {
		return perf, err
	}
	if rate, ok := SolveXIRR(flows); ok {
		pct := rate * 100
		perf.XIRR = &pct
	} else {
		c.diag.Notice("Portfolio XIRR did not converge over %d cash flows", len(flows))
	}

	return perf, nil
}

// HoldingXIRR computes the holding-method XIRR for every valued asset.
func (c *Calculator) HoldingXIRR(ledger *models.Ledger) {
	for _, asset := range ledger.SortedAssets() {
		if !asset.CurrentValueOfShares.Valid {
			continue
		}
		flows, err := c.cashflow.SelectXIRRFlows(ledger.Overview.CashFlows, models.XIRRHolding, asset.ISIN)
		if err != nil {
			continue
		}
		if rate, ok := SolveXIRR(flows); ok {
			pct := rate * 100
			asset.XIRR = &pct
		} else {
			c.diag.Notice("XIRR for %s (%s) did not converge", asset.Name, asset.ISIN)
		}
	}
}

// Assets returns the ledger's assets ordered by ISIN, optionally limited to
// those currently held. The overview is not affected by the filter.
func (c *Calculator) Assets(ledger *models.Ledger, currentHoldingsOnly bool) []*models.Asset {
	all := ledger.SortedAssets()
	if !currentHoldingsOnly {
		return all
	}
	held := make([]*models.Asset, 0, len(all))
	for _, asset := range all {
		if asset.IsHeld() {
			held = append(held, asset)
		}
	}
	return held
}
