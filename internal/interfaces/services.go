package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// PortfolioService runs the accounting and performance calculations
type PortfolioService interface {
	// Run reconciles the transactions, values current holdings and computes
	// gains and the money-weighted return
	Run(ctx context.Context, txs []models.Transaction, opts models.RunOptions) (*models.Result, error)

	// TWR computes the time-weighted return over the external-flow timeline
	TWR(ctx context.Context, txs []models.Transaction, filter models.TWRFilter) (*models.TWRResult, error)
}

// CashFlowService answers questions about the cash-flow ledger
type CashFlowService interface {
	// SelectXIRRFlows returns the date-sorted, sign-normalized flows for an XIRR method
	SelectXIRRFlows(flows []models.CashFlow, method models.XIRRMethod, isin string) ([]models.CashFlow, error)

	// CapitalSummary computes capital deployed against current portfolio value
	CapitalSummary(overview *models.Overview) models.CapitalSummary
}
