package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity classifies a non-fatal diagnostic raised during a run.
type Severity string

const (
	SeverityNotice  Severity = "notice"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one non-fatal message accumulated during a run.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// CostBasisResult is the outcome of replaying one asset's trade history.
type CostBasisResult struct {
	RemainingCostBase decimal.Decimal `json:"remaining_cost_base"`
	RealizedGain      decimal.Decimal `json:"realized_gain"`
}

// AssetPerformance holds portfolio-level gain totals and the money-weighted return.
type AssetPerformance struct {
	RealizedGainLoss   decimal.Decimal `json:"realized_gain_loss"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealized_gain_loss"`
	XIRR               *float64        `json:"xirr,omitempty"` // percent
}

// MissingPrice identifies a held asset for which no current price was available.
type MissingPrice struct {
	ISIN   string          `json:"isin"`
	Name   string          `json:"name"`
	Shares decimal.Decimal `json:"shares"`
}

// Result is the full output of one calculation run.
type Result struct {
	RunID         string           `json:"run_id"`
	AsOf          time.Time        `json:"as_of"`
	BaseCurrency  string           `json:"base_currency"`
	Assets        []*Asset         `json:"assets"`
	Overview      *Overview        `json:"overview"`
	Performance   AssetPerformance `json:"performance"`
	MissingPrices []MissingPrice   `json:"missing_prices,omitempty"`
	Capital       CapitalSummary   `json:"capital"`
	Diagnostics   []Diagnostic     `json:"diagnostics,omitempty"`
}

// SubPeriodReturn is the measured return of one TWR sub-period.
type SubPeriodReturn struct {
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	StartValue      decimal.Decimal `json:"start_value"`
	EndValue        decimal.Decimal `json:"end_value"`
	NetExternalFlow decimal.Decimal `json:"net_external_flow"`
	Dividends       decimal.Decimal `json:"dividends"`
	Return          decimal.Decimal `json:"return"`
}

// TWRResult is the per-sub-period breakdown and the compounded time-weighted return.
type TWRResult struct {
	SubPeriods  []SubPeriodReturn `json:"sub_periods"`
	Return      decimal.Decimal   `json:"return"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// ReturnPct returns the compounded return as a percentage.
func (r *TWRResult) ReturnPct() decimal.Decimal {
	return r.Return.Mul(decimal.NewFromInt(100))
}

// XIRRMethod selects which ledger entries feed a money-weighted return.
type XIRRMethod string

const (
	// XIRRPortfolio measures the investor's capital: external flows, income
	// and costs against the current value of the holdings.
	XIRRPortfolio XIRRMethod = "portfolio"
	// XIRRHolding measures a single instrument from its own trades.
	XIRRHolding XIRRMethod = "holding"
)

// RunOptions controls a calculation run.
type RunOptions struct {
	XIRRMethod          string    `json:"xirr_method"`
	CurrentHoldingsOnly bool      `json:"current_holdings_only"`
	AsOf                time.Time `json:"as_of"`
}

// TWRFilter restricts the TWR timeline to one bank and/or a date window.
// Zero values mean unbounded.
type TWRFilter struct {
	Bank Bank      `json:"bank,omitempty"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
