package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/models"
)

// A CLI run is short lived, so the shared flags live in globals.
var (
	configPath       = flag.String("config", "", "Path to folio.toml. Defaults to FOLIO_CONFIG, then folio.toml next to the binary")
	transactionsPath = flag.String("transactions", "transactions.json", "Path to the normalized transactions file (JSON array)")
	pricesPath       = flag.String("prices", "", "Static price file used instead of live market data")
	raw              = flag.Bool("raw", false, "Print raw markdown instead of rendering it for the terminal")
)

// load initializes the app and reads the transactions file.
func load() (*app.App, []models.Transaction, error) {
	a, err := app.NewApp(app.Options{ConfigPath: *configPath, PricesPath: *pricesPath})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	txs, err := app.LoadTransactions(*transactionsPath)
	if err != nil {
		return nil, nil, err
	}
	a.Logger.Debug().Str("path", *transactionsPath).Int("transactions", len(txs)).Msg("Transactions loaded")
	return a, txs, nil
}

// loadWarm is load followed by a market data warm-up.
func loadWarm(ctx context.Context) (*app.App, []models.Transaction, error) {
	a, txs, err := load()
	if err != nil {
		return nil, nil, err
	}
	a.WarmPrices(ctx, txs)
	return a, txs, nil
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	if *raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
