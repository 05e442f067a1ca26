// Package market provides market data services: current quotes, historical
// close series and FX rates keyed by ISIN.
package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// historyYears bounds the first full fetch of a series.
const historyYears = 10

// Service implements MarketDataProvider on top of EODHD, the file price store
// and an in-process memo. Without a client it serves stored data only.
type Service struct {
	eodhd        interfaces.EODHDClient
	store        interfaces.PriceStore
	memo         *cache.Cache
	baseCurrency string
	logger       *common.Logger
	now          func() time.Time
}

var _ interfaces.MarketDataProvider = (*Service)(nil)

// NewService creates a new market service. client may be nil for offline use.
func NewService(
	client interfaces.EODHDClient,
	store interfaces.PriceStore,
	baseCurrency string,
	ttl time.Duration,
	logger *common.Logger,
) *Service {
	return &Service{
		eodhd:        client,
		store:        store,
		memo:         cache.New(ttl, 2*ttl),
		baseCurrency: strings.ToUpper(baseCurrency),
		logger:       logger,
		now:          time.Now,
	}
}

// CurrentPrice returns the latest close for isin. An unknown instrument yields
// an invalid NullDecimal rather than an error. Offline, the last stored close
// is used.
func (s *Service) CurrentPrice(ctx context.Context, isin string) (decimal.NullDecimal, error) {
	key := "price:" + isin
	if v, ok := s.memo.Get(key); ok {
		return v.(decimal.NullDecimal), nil
	}

	var price decimal.NullDecimal
	if s.eodhd == nil {
		series, err := s.store.GetPriceSeries(ctx, isin)
		if err != nil {
			return price, err
		}
		if series != nil && len(series.Points) > 0 {
			price = decimal.NewNullDecimal(series.Points[len(series.Points)-1].Close)
		}
	} else {
		ticker, err := s.resolveTicker(ctx, isin)
		if err != nil {
			return price, err
		}
		if ticker == "" {
			s.logger.Debug().Str("isin", isin).Msg("No listing found for ISIN")
			s.memo.Set(key, price, cache.DefaultExpiration)
			return price, nil
		}
		quote, err := s.eodhd.GetRealTimeQuote(ctx, ticker)
		if err != nil {
			return price, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
		}
		last := quote.Close
		if last <= 0 {
			last = quote.PreviousClose
		}
		if last > 0 {
			price = decimal.NewNullDecimal(decimal.NewFromFloat(last))
		}
	}

	s.memo.Set(key, price, cache.DefaultExpiration)
	return price, nil
}

// HistoricalPrices returns the daily close series for isin keyed by date, or
// nil when no series is known.
func (s *Service) HistoricalPrices(ctx context.Context, isin string) (map[time.Time]decimal.Decimal, error) {
	series, err := s.series(ctx, isin, common.FreshnessPriceSeries, func() (string, error) {
		return s.resolveTicker(ctx, isin)
	})
	if err != nil || series == nil {
		return nil, err
	}
	return series.Map(), nil
}

// FXRate returns how many units of the base currency one unit of currency
// buys on date. The latest rate on or before date is used, else the first
// later one.
func (s *Service) FXRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "" || currency == s.baseCurrency {
		return decimal.NewFromInt(1), nil
	}

	ticker := eodhd.ForexTicker(currency, s.baseCurrency)
	series, err := s.series(ctx, "FX-"+currency+s.baseCurrency, common.FreshnessFXSeries, func() (string, error) {
		return ticker, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if series == nil || len(series.Points) == 0 {
		return decimal.Zero, fmt.Errorf("no %s rate history", ticker)
	}
	return rateOn(series.Points, models.DateOf(date)), nil
}

// series loads a stored series, refreshing it from EODHD when it is stale.
// A failed refresh falls back to the stored copy.
func (s *Service) series(ctx context.Context, key string, ttl time.Duration, ticker func() (string, error)) (*models.PriceSeries, error) {
	memoKey := "series:" + key
	if v, ok := s.memo.Get(memoKey); ok {
		return v.(*models.PriceSeries), nil
	}

	stored, err := s.store.GetPriceSeries(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Stored price series unreadable")
		stored = nil
	}
	if s.eodhd == nil || (stored != nil && common.IsFresh(stored.UpdatedAt, ttl)) {
		s.memo.Set(memoKey, stored, cache.DefaultExpiration)
		return stored, nil
	}

	symbol, err := ticker()
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		s.memo.Set(memoKey, stored, cache.DefaultExpiration)
		return stored, nil
	}

	refreshed, err := s.fetch(ctx, key, symbol, stored)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", symbol).Msg("Price series refresh failed, using stored copy")
		refreshed = stored
	}
	s.memo.Set(memoKey, refreshed, cache.DefaultExpiration)
	return refreshed, nil
}

// fetch pulls bars after the last stored point (or a full history when
// nothing is stored), merges and saves them.
func (s *Service) fetch(ctx context.Context, key, ticker string, stored *models.PriceSeries) (*models.PriceSeries, error) {
	now := s.now()
	from := now.AddDate(-historyYears, 0, 0)
	if stored != nil && len(stored.Points) > 0 {
		from = stored.Points[len(stored.Points)-1].Date.AddDate(0, 0, 1)
	}

	resp, err := s.eodhd.GetEOD(ctx, ticker, interfaces.WithDateRange(from, now))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EOD data for %s: %w", ticker, err)
	}

	fetched := models.SeriesFromBars(key, ticker, resp.Data)
	series := fetched
	if stored != nil {
		series = stored
		series.Points = mergePoints(fetched.Points, stored.Points)
		series.Ticker = ticker
	}
	series.UpdatedAt = now

	if err := s.store.SavePriceSeries(ctx, series); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to save price series")
	}

	s.logger.Debug().
		Str("key", key).
		Str("ticker", ticker).
		Int("fetched", len(fetched.Points)).
		Int("points", len(series.Points)).
		Msg("Price series refreshed")

	return series, nil
}

// resolveTicker maps an ISIN to an exchange ticker, preferring the ticker
// already recorded on the stored series.
func (s *Service) resolveTicker(ctx context.Context, isin string) (string, error) {
	key := "ticker:" + isin
	if v, ok := s.memo.Get(key); ok {
		return v.(string), nil
	}

	if stored, err := s.store.GetPriceSeries(ctx, isin); err == nil && stored != nil && stored.Ticker != "" {
		s.memo.Set(key, stored.Ticker, cache.NoExpiration)
		return stored.Ticker, nil
	}
	if s.eodhd == nil {
		return "", nil
	}

	symbols, err := s.eodhd.SearchISIN(ctx, isin)
	var apiErr *eodhd.APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		symbols, err = nil, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to search ISIN %s: %w", isin, err)
	}
	ticker := ""
	if len(symbols) > 0 {
		ticker = pickSymbol(symbols, s.baseCurrency).Ticker()
	}
	s.memo.Set(key, ticker, cache.NoExpiration)
	return ticker, nil
}

// pickSymbol prefers a listing traded in the base currency.
func pickSymbol(symbols []models.Symbol, baseCurrency string) models.Symbol {
	for _, sym := range symbols {
		if strings.EqualFold(sym.Currency, baseCurrency) {
			return sym
		}
	}
	return symbols[0]
}

// mergePoints combines two ascending series; newer points replace stored
// points on the same date.
func mergePoints(newer, stored []models.PricePoint) []models.PricePoint {
	byDate := make(map[time.Time]models.PricePoint, len(newer)+len(stored))
	for _, p := range stored {
		byDate[models.DateOf(p.Date)] = p
	}
	for _, p := range newer {
		byDate[models.DateOf(p.Date)] = p
	}

	merged := make([]models.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// rateOn returns the last point on or before date, else the first point.
func rateOn(points []models.PricePoint, date time.Time) decimal.Decimal {
	idx := sort.Search(len(points), func(i int) bool { return points[i].Date.After(date) })
	if idx == 0 {
		return points[0].Close
	}
	return points[idx-1].Close
}
