// Package cashflow provides queries over the cash-flow ledger: balances,
// flow selection for money-weighted returns, and capital performance.
package cashflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrUnknownMethod is returned for an XIRR method outside the supported set.
var ErrUnknownMethod = errors.New("unknown XIRR method")

// ParseMethod validates an XIRR method name.
func ParseMethod(s string) (models.XIRRMethod, error) {
	switch m := models.XIRRMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case models.XIRRPortfolio, models.XIRRHolding:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

var portfolioTypes = map[models.TransactionType]bool{
	models.TxDeposit:                       true,
	models.TxWithdrawal:                    true,
	models.TxDividend:                      true,
	models.TxCurrentHolding:                true,
	models.TxFee:                           true,
	models.TxForeignWithholdingTax:         true,
	models.TxReturnedForeignWithholdingTax: true,
}

var holdingTypes = map[models.TransactionType]bool{
	models.TxBuy:                   true,
	models.TxSell:                  true,
	models.TxDividend:              true,
	models.TxCurrentHolding:        true,
	models.TxFee:                   true,
	models.TxForeignWithholdingTax: true,
}

// Compile-time interface check
var _ interfaces.CashFlowService = (*Service)(nil)

// Service implements CashFlowService
type Service struct {
	logger *common.Logger
}

// NewService creates a new cashflow service
func NewService(logger *common.Logger) *Service {
	return &Service{logger: logger}
}

// SelectXIRRFlows returns the date-sorted subset of flows used by method.
// For the portfolio method deposits become negative and withdrawals positive;
// isin is required for the holding method and ignored otherwise.
func (s *Service) SelectXIRRFlows(flows []models.CashFlow, method models.XIRRMethod, isin string) ([]models.CashFlow, error) {
	var selected []models.CashFlow
	switch method {
	case models.XIRRPortfolio:
		for _, cf := range flows {
			if !portfolioTypes[cf.Type] {
				continue
			}
			switch cf.Type {
			case models.TxDeposit:
				cf.Amount = cf.Amount.Abs().Neg()
			case models.TxWithdrawal:
				cf.Amount = cf.Amount.Abs()
			}
			selected = append(selected, cf)
		}
	case models.XIRRHolding:
		if isin == "" {
			return nil, fmt.Errorf("holding XIRR requires an ISIN")
		}
		for _, cf := range flows {
			if holdingTypes[cf.Type] && cf.ISIN == isin {
				selected = append(selected, cf)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date.Before(selected[j].Date)
	})

	s.logger.Debug().
		Str("method", string(method)).
		Str("isin", isin).
		Int("flows", len(selected)).
		Msg("XIRR cash flows selected")

	return selected, nil
}

// Balance replays the ledger and returns the cash held before the cutoff.
// Valuation snapshots are not cash.
func Balance(flows []models.CashFlow, before time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, cf := range flows {
		if cf.Type == models.TxCurrentHolding || !cf.Date.Before(before) {
			continue
		}
		total = total.Add(cf.Amount)
	}
	return total
}

// CapitalSummary computes capital deployed against the current portfolio value.
func (s *Service) CapitalSummary(overview *models.Overview) models.CapitalSummary {
	summary := models.CapitalSummary{
		TotalDeposited:       overview.DepositAmountTotal,
		TotalWithdrawn:       overview.WithdrawalAmountTotal,
		NetCapitalDeployed:   overview.DepositAmountTotal.Sub(overview.WithdrawalAmountTotal),
		CurrentHoldingsValue: overview.TotalCurrentHoldings,
	}

	cash := decimal.Zero
	for _, cf := range overview.CashFlows {
		if cf.Type == models.TxCurrentHolding {
			continue
		}
		cash = cash.Add(cf.Amount)
		summary.TransactionCount++
		if summary.FirstTransactionDate == nil || cf.Date.Before(*summary.FirstTransactionDate) {
			d := cf.Date
			summary.FirstTransactionDate = &d
		}
	}
	summary.CashBalance = cash
	summary.CurrentPortfolioValue = summary.CurrentHoldingsValue.Add(cash)

	if summary.NetCapitalDeployed.IsPositive() {
		summary.SimpleReturnPct = summary.CurrentPortfolioValue.
			Sub(summary.NetCapitalDeployed).
			Div(summary.NetCapitalDeployed).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return summary
}
