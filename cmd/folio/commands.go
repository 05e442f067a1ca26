package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/cashflow"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/services/report"
)

// runFlags are the calculation options shared by summary and xirr.
type runFlags struct {
	method       string
	holdingsOnly bool
	asOf         string
}

func (r *runFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.method, "method", "", "XIRR method: portfolio or holding. Defaults to the configured method")
	f.BoolVar(&r.holdingsOnly, "holdings-only", false, "Report only instruments still held")
	f.StringVar(&r.asOf, "as-of", "", "Valuation date (YYYY-MM-DD). Defaults to today")
}

// options merges the flags over the configured defaults.
func (r *runFlags) options(config *common.Config) (models.RunOptions, error) {
	opts := models.RunOptions{
		XIRRMethod:          config.Calculation.XIRRMethod,
		CurrentHoldingsOnly: config.Calculation.CurrentHoldingsOnly || r.holdingsOnly,
	}
	if r.method != "" {
		opts.XIRRMethod = r.method
	}
	if r.asOf != "" {
		d, err := models.ParseDate(r.asOf)
		if err != nil {
			return opts, err
		}
		opts.AsOf = d
	}
	return opts, nil
}

// run executes a calculation run with the parsed flags.
func (r *runFlags) run(ctx context.Context) (*models.Result, models.XIRRMethod, subcommands.ExitStatus) {
	a, txs, err := loadWarm(ctx)
	if err != nil {
		fail("Error: %v", err)
		return nil, "", subcommands.ExitFailure
	}
	opts, err := r.options(a.Config)
	if err != nil {
		fail("Error parsing -as-of: %v", err)
		return nil, "", subcommands.ExitUsageError
	}
	method, err := cashflow.ParseMethod(opts.XIRRMethod)
	if err != nil {
		fail("Error: %v", err)
		return nil, "", subcommands.ExitUsageError
	}
	result, err := a.Portfolio.Run(ctx, txs, opts)
	if err != nil {
		fail("Error running calculation: %v", err)
		return nil, "", subcommands.ExitFailure
	}
	return result, method, subcommands.ExitSuccess
}

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	runFlags
	glossary bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display holdings, gains and capital summary" }
func (*summaryCmd) Usage() string {
	return `folio [-transactions <file>] summary [-method portfolio|holding] [-holdings-only] [-as-of <date>] [-glossary]

  Reconciles the transactions, values current holdings and prints gains,
  XIRR, capital deployed and any diagnostics.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.BoolVar(&c.glossary, "glossary", false, "Append definitions of every reported figure")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, _, status := c.run(ctx)
	if status != subcommands.ExitSuccess {
		return status
	}
	printMarkdown(report.FormatSummary(result, report.SummaryOptions{Glossary: c.glossary}))
	return subcommands.ExitSuccess
}

// xirrCmd holds the flags for the 'xirr' subcommand.
type xirrCmd struct {
	runFlags
}

func (*xirrCmd) Name() string     { return "xirr" }
func (*xirrCmd) Synopsis() string { return "display money-weighted returns" }
func (*xirrCmd) Usage() string {
	return `folio [-transactions <file>] xirr [-method portfolio|holding] [-holdings-only] [-as-of <date>]

  Prints the annualized money-weighted return of the portfolio and of each
  instrument.
`
}

func (c *xirrCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *xirrCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, method, status := c.run(ctx)
	if status != subcommands.ExitSuccess {
		return status
	}
	printMarkdown(report.FormatXIRR(result, method))
	return subcommands.ExitSuccess
}

// twrCmd holds the flags for the 'twr' subcommand.
type twrCmd struct {
	bank  string
	from  string
	to    string
	chart string
}

func (*twrCmd) Name() string     { return "twr" }
func (*twrCmd) Synopsis() string { return "display the time-weighted return" }
func (*twrCmd) Usage() string {
	return `folio [-transactions <file>] twr [-bank <bank>] [-from <date>] [-to <date>] [-chart <file.png>]

  Splits the timeline at every deposit and withdrawal, values the portfolio
  at each boundary and compounds the sub-period returns.
`
}

func (c *twrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.bank, "bank", "", "Restrict to one bank (AVANZA, NORDNET)")
	f.StringVar(&c.from, "from", "", "Ignore flows before this date (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "Ignore flows after this date (YYYY-MM-DD)")
	f.StringVar(&c.chart, "chart", "", "Write a cumulative return chart (PNG) to this file")
}

// filter parses the bank and date window flags.
func (c *twrCmd) filter() (models.TWRFilter, error) {
	var filter models.TWRFilter
	if c.bank != "" {
		b, err := models.ParseBank(c.bank)
		if err != nil {
			return filter, err
		}
		filter.Bank = b
	}
	for _, p := range []struct {
		value  string
		target *time.Time
	}{{c.from, &filter.From}, {c.to, &filter.To}} {
		if p.value == "" {
			continue
		}
		d, err := models.ParseDate(p.value)
		if err != nil {
			return filter, err
		}
		*p.target = d
	}
	return filter, nil
}

func (c *twrCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := c.filter()
	if err != nil {
		fail("Error parsing flags: %v", err)
		return subcommands.ExitUsageError
	}

	a, txs, err := loadWarm(ctx)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}

	result, err := a.Portfolio.TWR(ctx, txs, filter)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(report.FormatTWR(result, a.Config.BaseCurrency))

	if c.chart != "" {
		png, err := portfolio.RenderTWRChart(result)
		if err != nil {
			fail("Error rendering chart: %v", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.chart, png, 0644); err != nil {
			fail("Error writing chart %q: %v", c.chart, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Chart written to %s\n", c.chart)
	}
	return subcommands.ExitSuccess
}

// warmCmd pre-fetches market data for the transactions file.
type warmCmd struct {
	purge bool
}

func (*warmCmd) Name() string     { return "warm" }
func (*warmCmd) Synopsis() string { return "fetch and store prices for every traded instrument" }
func (*warmCmd) Usage() string {
	return `folio [-transactions <file>] warm [-purge-snapshots]

  Refreshes stored price series, quotes and FX rates so later runs can work
  from the local store.
`
}

func (c *warmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.purge, "purge-snapshots", false, "Remove cached ledger snapshots before warming")
}

func (c *warmCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, txs, err := load()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	if missing := a.Config.ValidateRequired(); len(missing) > 0 {
		fail("Warning: %s not set, only stored data is available", strings.Join(missing, ", "))
	}
	if c.purge {
		fmt.Printf("Removed %d cached snapshots\n", a.Store.PurgeSnapshots())
	}
	n := a.WarmPrices(ctx, txs)
	fmt.Printf("Warmed %d instruments in %s\n", n, a.Store.DataPath())
	return subcommands.ExitSuccess
}

// versionCmd prints the banner with build info and active settings.
type versionCmd struct{}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "print version and configuration" }
func (*versionCmd) Usage() string    { return "folio version\n" }

func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := app.NewApp(app.Options{ConfigPath: *configPath})
	if err != nil {
		fmt.Println(common.GetFullVersion())
		return subcommands.ExitSuccess
	}
	common.PrintBanner(os.Stdout, a.Config, a.Logger)
	return subcommands.ExitSuccess
}
