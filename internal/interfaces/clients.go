// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// EODHDClient provides access to the EODHD API
type EODHDClient interface {
	// GetEOD retrieves end-of-day price data
	GetEOD(ctx context.Context, ticker string, opts ...EODOption) (*models.EODResponse, error)

	// GetRealTimeQuote retrieves the latest (possibly delayed) quote
	GetRealTimeQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error)

	// SearchISIN resolves an ISIN to the instruments that carry it
	SearchISIN(ctx context.Context, isin string) ([]models.Symbol, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// MarketDataProvider supplies the prices and exchange rates a calculation run
// depends on.
type MarketDataProvider interface {
	// CurrentPrice returns the latest price for an instrument. An invalid
	// NullDecimal means no price is available.
	CurrentPrice(ctx context.Context, isin string) (decimal.NullDecimal, error)

	// HistoricalPrices returns the close-price series keyed by date. The map
	// is empty when no series exists.
	HistoricalPrices(ctx context.Context, isin string) (map[time.Time]decimal.Decimal, error)

	// FXRate returns the rate converting one unit of currency into the base
	// currency on date. It fails when no rate is available.
	FXRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}
