package marketfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	return store
}

func TestPriceSeries_RoundTripSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	series := &models.PriceSeries{
		ISIN:     "SE0000108656",
		Currency: "SEK",
		Points: []models.PricePoint{
			{Date: d2, Close: decimal.RequireFromString("101.5")},
			{Date: d1, Close: decimal.RequireFromString("100.25")},
		},
	}
	require.NoError(t, store.SavePriceSeries(ctx, series))

	got, err := store.GetPriceSeries(ctx, "SE0000108656")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Points, 2)
	assert.True(t, got.Points[0].Date.Equal(d1), "points should load in ascending order")
	assert.True(t, got.Points[1].Close.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, "SEK", got.Currency)
}

func TestPriceSeries_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetPriceSeries(context.Background(), "XX0000000000")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPriceSeries_RequiresISIN(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SavePriceSeries(context.Background(), &models.PriceSeries{}))
}

func TestPriceSeries_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.pricesDir, "BAD.json"), []byte("{"), 0644))
	_, err := store.GetPriceSeries(context.Background(), "BAD")
	assert.Error(t, err)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ledger := models.NewLedger()
	asset := ledger.Asset("SE0000108656")
	asset.Name = "Ericsson B"
	asset.CostBasis = decimal.RequireFromString("600")
	ledger.Overview.DepositAmountTotal = decimal.NewFromInt(1000)

	require.NoError(t, store.SaveSnapshot(ctx, "abc", ledger))

	got, err := store.GetSnapshot(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ericsson B", got.Assets["SE0000108656"].Name)
	assert.True(t, got.Assets["SE0000108656"].CostBasis.Equal(decimal.NewFromInt(600)))
	assert.True(t, got.Overview.DepositAmountTotal.Equal(decimal.NewFromInt(1000)))

	missing, err := store.GetSnapshot(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, 1, store.PurgeSnapshots())
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "a_b_c_d", sanitizeKey("a/b\\c:d"))
	assert.Equal(t, "__etc", sanitizeKey("../etc"))
}
