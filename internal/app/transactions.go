package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bobmcallan/folio/internal/models"
)

// LoadTransactions reads a JSON array of transactions and returns them in
// processing order.
func LoadTransactions(path string) ([]models.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions file %s: %w", path, err)
	}

	var txs []models.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("failed to parse transactions file %s: %w", path, err)
	}

	models.SortTransactions(txs)
	return txs, nil
}
