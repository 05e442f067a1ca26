package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// priceFile is the on-disk layout of a static price file. Dates are
// YYYY-MM-DD; FX rates are units of the base currency per unit of currency.
type priceFile struct {
	BaseCurrency string                                `json:"base_currency"`
	Current      map[string]decimal.Decimal            `json:"current"`
	History      map[string]map[string]decimal.Decimal `json:"history"`
	FX           map[string]map[string]decimal.Decimal `json:"fx"`
}

// StaticProvider serves prices and rates from a fixed in-memory table.
type StaticProvider struct {
	baseCurrency string
	current      map[string]decimal.Decimal
	history      map[string]map[time.Time]decimal.Decimal
	fx           map[string][]models.PricePoint
}

var _ interfaces.MarketDataProvider = (*StaticProvider)(nil)

// LoadStaticPrices reads a static price file.
func LoadStaticPrices(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price file %s: %w", path, err)
	}
	var file priceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price file %s: %w", path, err)
	}

	p := &StaticProvider{
		baseCurrency: strings.ToUpper(file.BaseCurrency),
		current:      file.Current,
		history:      make(map[string]map[time.Time]decimal.Decimal, len(file.History)),
		fx:           make(map[string][]models.PricePoint, len(file.FX)),
	}
	if p.current == nil {
		p.current = make(map[string]decimal.Decimal)
	}
	for isin, points := range file.History {
		series, err := parsePoints(points)
		if err != nil {
			return nil, fmt.Errorf("price history for %s: %w", isin, err)
		}
		byDate := make(map[time.Time]decimal.Decimal, len(series))
		for _, pt := range series {
			byDate[pt.Date] = pt.Close
		}
		p.history[isin] = byDate
	}
	for currency, points := range file.FX {
		series, err := parsePoints(points)
		if err != nil {
			return nil, fmt.Errorf("fx rates for %s: %w", currency, err)
		}
		p.fx[strings.ToUpper(currency)] = series
	}
	return p, nil
}

// CurrentPrice returns the configured price, or an invalid value if none is set.
func (p *StaticProvider) CurrentPrice(_ context.Context, isin string) (decimal.NullDecimal, error) {
	price, ok := p.current[isin]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(price), nil
}

// HistoricalPrices returns the configured series, or nil.
func (p *StaticProvider) HistoricalPrices(_ context.Context, isin string) (map[time.Time]decimal.Decimal, error) {
	return p.history[isin], nil
}

// FXRate returns the rate on or before date, else the first configured rate.
func (p *StaticProvider) FXRate(_ context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "" || currency == p.baseCurrency {
		return decimal.NewFromInt(1), nil
	}
	points := p.fx[currency]
	if len(points) == 0 {
		return decimal.Zero, fmt.Errorf("no %s rates configured", currency)
	}
	return rateOn(points, models.DateOf(date)), nil
}

func parsePoints(raw map[string]decimal.Decimal) ([]models.PricePoint, error) {
	points := make([]models.PricePoint, 0, len(raw))
	for s, v := range raw {
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, err
		}
		points = append(points, models.PricePoint{Date: d, Close: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
