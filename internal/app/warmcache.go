package app

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/folio/internal/models"
)

// warmConcurrency bounds the instruments fetched in parallel.
const warmConcurrency = 4

// WarmPrices pre-fetches the price series, current quotes and FX rates the
// given transactions depend on so the calculation itself reads from the store.
// Failures are logged and never stop the warm-up. It returns the number of
// instruments visited.
func (a *App) WarmPrices(ctx context.Context, txs []models.Transaction) int {
	if os.Getenv("FOLIO_WARM_CACHE") == "off" {
		a.Logger.Info().Msg("Warm cache: disabled via FOLIO_WARM_CACHE=off")
		return 0
	}

	start := time.Now()

	isins, currencies := instrumentsOf(txs, a.Config.BaseCurrency)
	if len(isins) == 0 {
		a.Logger.Info().Msg("Warm cache: no instruments, skipping")
		return 0
	}

	var visited atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, isin := range isins {
		isin := isin
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if _, err := a.Market.HistoricalPrices(gctx, isin); err != nil {
				a.Logger.Warn().Err(err).Str("isin", isin).Msg("Warm cache: price history failed")
			}
			if _, err := a.Market.CurrentPrice(gctx, isin); err != nil {
				a.Logger.Warn().Err(err).Str("isin", isin).Msg("Warm cache: current price failed")
			}
			visited.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		a.Logger.Info().Int64("visited", visited.Load()).Msg("Warm cache: cancelled")
		return int(visited.Load())
	}

	today := models.DateOf(time.Now())
	for _, cur := range currencies {
		if _, err := a.Market.FXRate(ctx, cur, today); err != nil {
			a.Logger.Warn().Err(err).Str("currency", cur).Msg("Warm cache: FX rate failed")
		}
	}

	a.Logger.Info().
		Int64("instruments", visited.Load()).
		Int("currencies", len(currencies)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
	return int(visited.Load())
}

// instrumentsOf returns the sorted distinct ISINs traded in txs and the
// foreign currencies they are quoted in.
func instrumentsOf(txs []models.Transaction, baseCurrency string) ([]string, []string) {
	isinSet := make(map[string]bool)
	curSet := make(map[string]bool)
	for _, tx := range txs {
		if !tx.HasISIN() || !tx.Type.IsTrade() {
			continue
		}
		isinSet[tx.ISIN] = true
		cur := strings.ToUpper(strings.TrimSpace(tx.Currency))
		if cur != "" && cur != strings.ToUpper(baseCurrency) {
			curSet[cur] = true
		}
	}
	return sortedKeys(isinSet), sortedKeys(curSet)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
