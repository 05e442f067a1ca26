package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

const isinA = "SE0000000001"

func TestCostBasis_BuysOnly(t *testing.T) {
	ledger, diag := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		buy(day(2024, 2, 2), isinA, "5", "-500"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.Equal(dec("1500")), "cost basis = %s", asset.CostBasis)
	assert.True(t, asset.RealizedGainLoss.IsZero())
	assert.Equal(t, 0, diag.Len())
}

func TestCostBasis_PartialSell(t *testing.T) {
	ledger, _ := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		sell(day(2024, 6, 2), isinA, "-4", "600"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.RealizedGainLoss.Equal(dec("200")), "realized = %s", asset.RealizedGainLoss)
	assert.True(t, asset.CostBasis.Equal(dec("600")), "cost basis = %s", asset.CostBasis)
}

func TestCostBasis_FullSellClearsBasis(t *testing.T) {
	ledger, _ := routed(
		buy(day(2024, 1, 2), isinA, "3", "-100"),
		sell(day(2024, 6, 2), isinA, "-3", "90"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.IsZero())
	assert.True(t, asset.RealizedGainLoss.Equal(dec("-10")))
	assert.True(t, asset.CurrentNumberOfShares.IsZero())
}

func TestCostBasis_SellWithoutHoldingIsSkipped(t *testing.T) {
	ledger, diag := routed(
		sell(day(2024, 6, 2), isinA, "-5", "500"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.IsZero())
	assert.True(t, asset.RealizedGainLoss.IsZero())
	assert.Equal(t, 1, diag.Count(models.SeverityWarning))
}

func TestCostBasis_OversellKeepsState(t *testing.T) {
	ledger, diag := routed(
		buy(day(2024, 1, 2), isinA, "2", "-200"),
		sell(day(2024, 6, 2), isinA, "-5", "500"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.Equal(dec("200")))
	assert.True(t, asset.RealizedGainLoss.IsZero())
	assert.Equal(t, 1, diag.Count(models.SeverityWarning))
}

func TestCostBasis_SplitKeepsCostAndSpreadsIt(t *testing.T) {
	split := withType(buy(day(2024, 3, 1), isinA, "10", "0"), models.TxShareSplit)
	ledger, _ := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		split,
		sell(day(2024, 6, 2), isinA, "-10", "600"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.Equal(dec("500")), "cost basis = %s", asset.CostBasis)
	assert.True(t, asset.RealizedGainLoss.Equal(dec("100")), "realized = %s", asset.RealizedGainLoss)
	assert.True(t, asset.CurrentNumberOfShares.Equal(dec("10")))
}

func TestCostBasis_SplitBeforeAnyBuyIsIgnored(t *testing.T) {
	split := withType(buy(day(2024, 1, 1), isinA, "10", "0"), models.TxShareSplit)
	ledger, _ := routed(
		split,
		buy(day(2024, 1, 2), isinA, "4", "-400"),
		sell(day(2024, 6, 2), isinA, "-2", "300"),
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.Equal(dec("200")))
	assert.True(t, asset.RealizedGainLoss.Equal(dec("100")))
}

func TestCostBasis_CancelledBuyIsWarned(t *testing.T) {
	ledger, diag := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		buy(day(2024, 1, 3), isinA, "-10", "1000"),
	)

	// Both quantities count toward the basis but no shares remain.
	assert.Equal(t, 1, diag.Count(models.SeverityWarning))
	assert.Equal(t, 1, diag.Count(models.SeverityNotice))
	assert.True(t, ledger.Assets[isinA].CostBasis.IsZero())
	assert.True(t, ledger.Assets[isinA].CurrentNumberOfShares.IsZero())
}

func TestCostBasis_CancelledSellIsWarned(t *testing.T) {
	_, diag := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		sell(day(2024, 2, 2), isinA, "4", "-400"),
	)

	assert.Equal(t, 1, diag.Count(models.SeverityWarning))
}

func TestCostBasis_TransferredOutResetsBasis(t *testing.T) {
	transfer := withType(buy(day(2024, 3, 1), isinA, "-10", "0"), models.TxShareTransfer)
	ledger, diag := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		transfer,
	)
	asset := ledger.Assets[isinA]

	assert.True(t, asset.CostBasis.IsZero())
	assert.Equal(t, 1, diag.Count(models.SeverityNotice))
}

func TestCostBasis_IgnoresNonTrades(t *testing.T) {
	ledger, _ := routed(
		buy(day(2024, 1, 2), isinA, "10", "-1000"),
		dividend(day(2024, 4, 1), isinA, "50"),
	)

	result := NewCostBasisEngine(newTestDiag(), common.NewSilentLogger()).Calculate(ledger.Assets[isinA])
	assert.True(t, result.RemainingCostBase.Equal(dec("1000")))
	assert.True(t, result.RealizedGain.IsZero())
}
