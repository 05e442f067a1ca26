package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceStore persists historical price series per ISIN.
// Get methods return (nil, nil) when nothing is stored under the key.
type PriceStore interface {
	GetPriceSeries(ctx context.Context, isin string) (*models.PriceSeries, error)
	SavePriceSeries(ctx context.Context, series *models.PriceSeries) error
}

// SnapshotStore persists reconciled ledgers keyed by a content hash of the
// transactions they were built from.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, key string) (*models.Ledger, error)
	SaveSnapshot(ctx context.Context, key string, ledger *models.Ledger) error
}
