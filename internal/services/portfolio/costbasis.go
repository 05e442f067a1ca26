package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// CostBasisEngine computes remaining cost basis and realized gain with the
// weighted-average cost method.
type CostBasisEngine struct {
	diag   *common.Diagnostics
	logger *common.Logger
}

// NewCostBasisEngine creates an engine reporting anomalies to diag.
func NewCostBasisEngine(diag *common.Diagnostics, logger *common.Logger) *CostBasisEngine {
	return &CostBasisEngine{diag: diag, logger: logger}
}

// Apply calculates the asset's cost basis and stores the result on it.
func (e *CostBasisEngine) Apply(asset *models.Asset) models.CostBasisResult {
	result := e.Calculate(asset)
	asset.CostBasis = result.RemainingCostBase
	asset.RealizedGainLoss = result.RealizedGain
	return result
}

// Calculate replays the asset's buys, sells and splits in date order.
func (e *CostBasisEngine) Calculate(asset *models.Asset) models.CostBasisResult {
	trades := make([]models.Transaction, 0, len(asset.Transactions))
	for _, tx := range asset.Transactions {
		switch tx.Type {
		case models.TxBuy, models.TxSell, models.TxShareSplit:
			trades = append(trades, tx)
		}
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Date.Before(trades[j].Date)
	})

	totalCost := decimal.Zero
	totalQuantity := decimal.Zero
	realized := decimal.Zero

	for _, tx := range trades {
		amount := tx.AmountOrZero()
		quantity := tx.QuantityOrZero()
		date := tx.Date.Format("2006-01-02")

		switch tx.Type {
		case models.TxBuy:
			if amount.IsPositive() && quantity.IsNegative() {
				e.diag.Warning("Cancelled buy of %s on %s (amount %s, quantity %s)", asset.Name, date, amount, quantity)
				amount = amount.Neg()
				quantity = quantity.Neg()
			}
			totalCost = totalCost.Add(amount.Abs())
			totalQuantity = totalQuantity.Add(quantity.Abs())

		case models.TxSell:
			if amount.IsNegative() && quantity.IsPositive() {
				e.diag.Warning("Cancelled sell of %s on %s (amount %s, quantity %s)", asset.Name, date, amount, quantity)
			}
			sold := quantity.Abs()
			if !totalQuantity.IsPositive() || totalQuantity.LessThan(sold) {
				e.diag.Warning("Sell of %s %s on %s exceeds recorded holding of %s; skipped in cost basis",
					sold, asset.Name, date, totalQuantity)
				e.logger.Warn().
					Str("isin", asset.ISIN).
					Str("sold", sold.String()).
					Str("held", totalQuantity.String()).
					Msg("Sell exceeds recorded quantity")
				continue
			}
			soldCost := totalCost
			if !sold.Equal(totalQuantity) {
				soldCost = totalCost.Mul(sold).Div(totalQuantity)
			}
			realized = realized.Add(amount.Abs().Sub(soldCost))
			totalCost = totalCost.Sub(soldCost)
			totalQuantity = totalQuantity.Sub(sold)

		case models.TxShareSplit:
			if !totalQuantity.IsZero() {
				totalQuantity = totalQuantity.Add(quantity)
			}
		}
	}

	totalCost = models.SnapZero(totalCost)
	totalQuantity = models.SnapZero(totalQuantity)

	if !totalCost.IsZero() && models.SnapZero(asset.NetQuantity()).IsZero() {
		e.diag.Notice("Cost basis %s for %s (%s) reset to 0: no shares remain after transfers",
			totalCost, asset.Name, asset.ISIN)
		totalCost = decimal.Zero
	}

	return models.CostBasisResult{
		RemainingCostBase: totalCost,
		RealizedGain:      realized,
	}
}
