package portfolio

import (
	"errors"

	"github.com/bobmcallan/folio/internal/services/cashflow"
)

// Fatal conditions. Every other anomaly is reported as a diagnostic and the
// run continues.
var (
	// ErrUnknownXIRRMethod is returned when the requested XIRR method is not supported
	ErrUnknownXIRRMethod = cashflow.ErrUnknownMethod

	// ErrNoTransactions is returned when there is nothing to calculate
	ErrNoTransactions = errors.New("no transactions")

	// ErrMissingPrice is returned when a held asset has neither a price series
	// nor a trade to infer a price from
	ErrMissingPrice = errors.New("missing price")

	// ErrMissingFXRate is returned when a foreign-currency valuation has no exchange rate
	ErrMissingFXRate = errors.New("missing FX rate")

	// ErrZeroStartValue is returned when a TWR sub-period starts with no capital
	ErrZeroStartValue = errors.New("sub-period start value is zero")
)
