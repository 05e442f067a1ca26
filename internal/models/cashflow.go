package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentHoldingAccount is the account label used for synthetic valuation entries.
const CurrentHoldingAccount = "-"

// CashFlow is one dated, signed money movement (or valuation snapshot) in the ledger.
type CashFlow struct {
	Date    time.Time       `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Name    string          `json:"name"`
	Type    TransactionType `json:"type"`
	Account string          `json:"account"`
	Bank    Bank            `json:"bank"`
	ISIN    string          `json:"isin,omitempty"`
}

// Overview is the cash-flow ledger of one run: aggregate totals plus the
// chronological list of cash flows.
type Overview struct {
	TotalBuyAmount                     decimal.Decimal `json:"total_buy_amount"`
	TotalSellAmount                    decimal.Decimal `json:"total_sell_amount"`
	TotalBuyCommission                 decimal.Decimal `json:"total_buy_commission"`
	TotalSellCommission                decimal.Decimal `json:"total_sell_commission"`
	TotalDividend                      decimal.Decimal `json:"total_dividend"`
	TotalInterest                      decimal.Decimal `json:"total_interest"`
	TotalFee                           decimal.Decimal `json:"total_fee"`
	TotalTax                           decimal.Decimal `json:"total_tax"`
	TotalForeignWithholdingTax         decimal.Decimal `json:"total_foreign_withholding_tax"`
	TotalReturnedForeignWithholdingTax decimal.Decimal `json:"total_returned_foreign_withholding_tax"`
	TotalCurrentHoldings               decimal.Decimal `json:"total_current_holdings"`
	TotalShareLoanPayout               decimal.Decimal `json:"total_share_loan_payout"`
	DepositAmountTotal                 decimal.Decimal `json:"deposit_amount_total"`
	WithdrawalAmountTotal              decimal.Decimal `json:"withdrawal_amount_total"`

	CurrentHoldingsWeighting map[string]decimal.Decimal `json:"current_holdings_weighting"`
	CashFlows                []CashFlow                 `json:"cash_flows"`
}

// NewOverview creates an empty ledger.
func NewOverview() *Overview {
	return &Overview{CurrentHoldingsWeighting: make(map[string]decimal.Decimal)}
}

// AppendCashFlow records a money movement derived from tx.
func (o *Overview) AppendCashFlow(tx Transaction) {
	o.CashFlows = append(o.CashFlows, CashFlow{
		Date:    tx.Date,
		Amount:  tx.AmountOrZero(),
		Name:    tx.Name,
		Type:    tx.Type,
		Account: tx.Account,
		Bank:    tx.Bank,
		ISIN:    tx.ISIN,
	})
}

// SortCashFlows orders the ledger chronologically, keeping insertion order for
// entries on the same date.
func (o *Overview) SortCashFlows() {
	sort.SliceStable(o.CashFlows, func(i, j int) bool {
		return o.CashFlows[i].Date.Before(o.CashFlows[j].Date)
	})
}

// Ledger is the complete mutable state of one calculation run: assets keyed by
// ISIN plus the cash-flow ledger. It is owned by a single caller.
type Ledger struct {
	Assets      map[string]*Asset `json:"assets"`
	Overview    *Overview         `json:"overview"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Assets:   make(map[string]*Asset),
		Overview: NewOverview(),
	}
}

// Asset returns the asset for isin, creating it on first use.
func (l *Ledger) Asset(isin string) *Asset {
	a, ok := l.Assets[isin]
	if !ok {
		a = NewAsset(isin)
		l.Assets[isin] = a
	}
	return a
}

// SortedAssets returns the assets ordered by ISIN.
func (l *Ledger) SortedAssets() []*Asset {
	isins := make([]string, 0, len(l.Assets))
	for isin := range l.Assets {
		isins = append(isins, isin)
	}
	sort.Strings(isins)
	out := make([]*Asset, 0, len(isins))
	for _, isin := range isins {
		out = append(out, l.Assets[isin])
	}
	return out
}

// CapitalSummary is a simple view of capital deployed against current value.
type CapitalSummary struct {
	TotalDeposited        decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn        decimal.Decimal `json:"total_withdrawn"`
	NetCapitalDeployed    decimal.Decimal `json:"net_capital_deployed"`
	CashBalance           decimal.Decimal `json:"cash_balance"`
	CurrentHoldingsValue  decimal.Decimal `json:"current_holdings_value"`
	CurrentPortfolioValue decimal.Decimal `json:"current_portfolio_value"`
	SimpleReturnPct       decimal.Decimal `json:"simple_return_pct"`
	FirstTransactionDate  *time.Time      `json:"first_transaction_date,omitempty"`
	TransactionCount      int             `json:"transaction_count"`
}
