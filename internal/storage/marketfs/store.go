// Package marketfs implements file-based JSON storage for price series and
// reconciled ledger snapshots.
package marketfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// errNotFound marks a missing key inside the store; it never leaves the package.
var errNotFound = errors.New("not found")

// Store provides file-based JSON storage.
type Store struct {
	basePath     string
	pricesDir    string
	snapshotsDir string
	logger       *common.Logger
}

var (
	_ interfaces.PriceStore    = (*Store)(nil)
	_ interfaces.SnapshotStore = (*Store)(nil)
)

// NewStore creates the store directories under path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store path %s: %w", path, err)
	}
	pricesDir := filepath.Join(path, "prices")
	snapshotsDir := filepath.Join(path, "snapshots")
	for _, dir := range []string{pricesDir, snapshotsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.Debug().Str("path", path).Msg("File store opened")
	return &Store{
		basePath:     path,
		pricesDir:    pricesDir,
		snapshotsDir: snapshotsDir,
		logger:       logger,
	}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// GetPriceSeries loads the stored series for isin, or nil if none is stored.
func (s *Store) GetPriceSeries(_ context.Context, isin string) (*models.PriceSeries, error) {
	var series models.PriceSeries
	if err := readJSON(s.pricesDir, isin, &series); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load price series %s: %w", isin, err)
	}
	series.Sort()
	return &series, nil
}

// SavePriceSeries writes the series atomically, replacing any previous copy.
func (s *Store) SavePriceSeries(_ context.Context, series *models.PriceSeries) error {
	if series == nil || series.ISIN == "" {
		return fmt.Errorf("price series requires an ISIN")
	}
	if err := writeJSON(s.pricesDir, series.ISIN, series); err != nil {
		return fmt.Errorf("failed to save price series %s: %w", series.ISIN, err)
	}
	s.logger.Debug().Str("isin", series.ISIN).Int("points", len(series.Points)).Msg("Price series saved")
	return nil
}

// GetSnapshot loads a reconciled ledger by content key, or nil if absent.
func (s *Store) GetSnapshot(_ context.Context, key string) (*models.Ledger, error) {
	var ledger models.Ledger
	if err := readJSON(s.snapshotsDir, key, &ledger); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	if ledger.Assets == nil {
		ledger.Assets = make(map[string]*models.Asset)
	}
	if ledger.Overview == nil {
		ledger.Overview = models.NewOverview()
	}
	return &ledger, nil
}

// SaveSnapshot writes a reconciled ledger under its content key.
func (s *Store) SaveSnapshot(_ context.Context, key string, ledger *models.Ledger) error {
	if err := writeJSON(s.snapshotsDir, key, ledger); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("assets", len(ledger.Assets)).Msg("Snapshot saved")
	return nil
}

// PurgeSnapshots removes all snapshot files and returns the count.
func (s *Store) PurgeSnapshots() int {
	return purgeDir(s.snapshotsDir)
}

// --- helpers ---

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

func readJSON(dir, key string, dest interface{}) error {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s': %w", key, errNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	return json.Unmarshal(data, dest)
}

func writeJSON(dir, key string, data interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filePath(dir, key)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func purgeDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if os.Remove(filepath.Join(dir, name)) == nil {
			count++
		}
	}
	return count
}
