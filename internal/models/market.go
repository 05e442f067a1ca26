package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RealTimeQuote holds a live price snapshot for a ticker
type RealTimeQuote struct {
	Code          string    `json:"code"`
	Close         float64   `json:"close"`
	PreviousClose float64   `json:"previous_close"`
	Timestamp     time.Time `json:"timestamp"`
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse wraps a list of end-of-day bars
type EODResponse struct {
	Data []EODBar `json:"data"`
}

// Symbol is an instrument returned by a ticker search
type Symbol struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Type     string `json:"Type"`
	Country  string `json:"Country"`
	Currency string `json:"Currency"`
	ISIN     string `json:"ISIN"`
}

// Ticker returns the exchange-qualified ticker, e.g. "VOLV-B.ST".
func (s Symbol) Ticker() string {
	return s.Code + "." + s.Exchange
}

// PricePoint is one dated close price.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceSeries is a historical close-price series for one instrument, kept in
// ascending date order.
type PriceSeries struct {
	ISIN      string       `json:"isin"`
	Ticker    string       `json:"ticker,omitempty"`
	Currency  string       `json:"currency,omitempty"`
	Points    []PricePoint `json:"points"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Sort orders the series by ascending date.
func (s *PriceSeries) Sort() {
	sort.Slice(s.Points, func(i, j int) bool {
		return s.Points[i].Date.Before(s.Points[j].Date)
	})
}

// Map returns the series keyed by date.
func (s *PriceSeries) Map() map[time.Time]decimal.Decimal {
	out := make(map[time.Time]decimal.Decimal, len(s.Points))
	for _, p := range s.Points {
		out[DateOf(p.Date)] = p.Close
	}
	return out
}

// SeriesFromBars converts EOD bars into a price series.
func SeriesFromBars(isin, ticker string, bars []EODBar) *PriceSeries {
	s := &PriceSeries{ISIN: isin, Ticker: ticker, UpdatedAt: time.Now()}
	for _, b := range bars {
		if b.Date.IsZero() {
			continue
		}
		s.Points = append(s.Points, PricePoint{Date: DateOf(b.Date), Close: decimal.NewFromFloat(b.Close)})
	}
	s.Sort()
	return s
}
