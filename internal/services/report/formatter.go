// Package report renders calculation results as markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// FormatMoney renders amount in currency using the currency's symbol, grouping
// and minor-unit precision. Unknown currency codes fall back to two decimals
// followed by the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatSignedMoney is FormatMoney with an explicit "+" on positive amounts.
func FormatSignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + FormatMoney(amount, currency)
	}
	return FormatMoney(amount, currency)
}

// FormatPct renders a percentage value with two decimals.
func FormatPct(pct decimal.Decimal) string {
	return pct.StringFixed(2) + "%"
}

func formatRate(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *pct)
}

// SummaryOptions controls optional sections of the summary report.
type SummaryOptions struct {
	Glossary bool
}

// FormatSummary renders a calculation run: performance headline, capital,
// holdings table, missing prices and diagnostics.
func FormatSummary(result *models.Result, opts SummaryOptions) string {
	var sb strings.Builder
	cur := result.BaseCurrency

	sb.WriteString("# Portfolio Summary\n\n")
	sb.WriteString(fmt.Sprintf("**As of:** %s\n", result.AsOf.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("**Holdings Value:** %s\n", FormatMoney(result.Overview.TotalCurrentHoldings, cur)))
	sb.WriteString(fmt.Sprintf("**Realized Gain:** %s\n", FormatSignedMoney(result.Performance.RealizedGainLoss, cur)))
	sb.WriteString(fmt.Sprintf("**Unrealized Gain:** %s\n", FormatSignedMoney(result.Performance.UnrealizedGainLoss, cur)))
	sb.WriteString(fmt.Sprintf("**XIRR:** %s\n\n", formatRate(result.Performance.XIRR)))

	sb.WriteString(formatCapital(result.Capital, cur))
	sb.WriteString(formatHoldings(result, cur))
	sb.WriteString(formatIncome(result.Overview, cur))

	if len(result.MissingPrices) > 0 {
		sb.WriteString("## Missing Prices\n\n")
		sb.WriteString("| ISIN | Name | Shares |\n")
		sb.WriteString("|------|------|--------|\n")
		for _, m := range result.MissingPrices {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", m.ISIN, m.Name, m.Shares.String()))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(FormatDiagnostics(result.Diagnostics))

	if opts.Glossary {
		sb.WriteString(FormatGlossary(Glossary()))
	}

	return sb.String()
}

func formatCapital(c models.CapitalSummary, cur string) string {
	var sb strings.Builder
	sb.WriteString("## Capital\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Deposited | %s |\n", FormatMoney(c.TotalDeposited, cur)))
	sb.WriteString(fmt.Sprintf("| Withdrawn | %s |\n", FormatMoney(c.TotalWithdrawn, cur)))
	sb.WriteString(fmt.Sprintf("| Net Capital | %s |\n", FormatMoney(c.NetCapitalDeployed, cur)))
	sb.WriteString(fmt.Sprintf("| Cash Balance | %s |\n", FormatMoney(c.CashBalance, cur)))
	sb.WriteString(fmt.Sprintf("| Portfolio Value | %s |\n", FormatMoney(c.CurrentPortfolioValue, cur)))
	sb.WriteString(fmt.Sprintf("| Simple Return | %s |\n", FormatPct(c.SimpleReturnPct)))
	if c.FirstTransactionDate != nil {
		sb.WriteString(fmt.Sprintf("| First Transaction | %s |\n", c.FirstTransactionDate.Format("2006-01-02")))
	}
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n\n", c.TransactionCount))
	return sb.String()
}

func formatHoldings(result *models.Result, cur string) string {
	if len(result.Assets) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Holdings\n\n")
	sb.WriteString("| Name | ISIN | Shares | Cost Basis | Value | Weight | Realized | Unrealized | XIRR |\n")
	sb.WriteString("|------|------|--------|------------|-------|--------|----------|------------|------|\n")

	for _, a := range result.Assets {
		value := "-"
		if a.CurrentValueOfShares.Valid {
			value = FormatMoney(a.CurrentValueOfShares.Decimal, cur)
		}
		weight := "-"
		if w, ok := result.Overview.CurrentHoldingsWeighting[a.ISIN]; ok {
			weight = FormatPct(w)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escapeCell(a.Name),
			a.ISIN,
			a.CurrentNumberOfShares.String(),
			FormatMoney(a.CostBasis, cur),
			value,
			weight,
			FormatSignedMoney(a.RealizedGainLoss, cur),
			FormatSignedMoney(a.UnrealizedGainLoss, cur),
			formatRate(a.XIRR),
		))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatIncome(o *models.Overview, cur string) string {
	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Dividends", o.TotalDividend},
		{"Interest", o.TotalInterest},
		{"Share Loan Payout", o.TotalShareLoanPayout},
		{"Fees", o.TotalFee},
		{"Tax", o.TotalTax},
		{"Foreign Withholding Tax", o.TotalForeignWithholdingTax},
		{"Returned Withholding Tax", o.TotalReturnedForeignWithholdingTax},
		{"Buy Commission", o.TotalBuyCommission},
		{"Sell Commission", o.TotalSellCommission},
	}

	var sb strings.Builder
	sb.WriteString("## Income and Costs\n\n")
	sb.WriteString("| Item | Amount |\n")
	sb.WriteString("|------|--------|\n")
	for _, r := range rows {
		if r.amount.IsZero() {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", r.label, FormatMoney(r.amount, cur)))
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatXIRR renders the money-weighted returns of a run.
func FormatXIRR(result *models.Result, method models.XIRRMethod) string {
	var sb strings.Builder
	sb.WriteString("# XIRR\n\n")
	sb.WriteString(fmt.Sprintf("**Method:** %s\n", method))
	if method != models.XIRRHolding {
		sb.WriteString(fmt.Sprintf("**Portfolio XIRR:** %s\n", formatRate(result.Performance.XIRR)))
	}
	sb.WriteString("\n| Name | ISIN | XIRR |\n")
	sb.WriteString("|------|------|------|\n")
	for _, a := range result.Assets {
		if a.XIRR == nil && !a.CurrentValueOfShares.Valid {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(a.Name), a.ISIN, formatRate(a.XIRR)))
	}
	sb.WriteString("\n")
	sb.WriteString(FormatDiagnostics(result.Diagnostics))
	return sb.String()
}

// FormatTWR renders the sub-period breakdown and compounded time-weighted return.
func FormatTWR(result *models.TWRResult, currency string) string {
	var sb strings.Builder
	sb.WriteString("# Time-Weighted Return\n\n")
	sb.WriteString(fmt.Sprintf("**TWR:** %s\n", FormatPct(result.ReturnPct())))
	sb.WriteString(fmt.Sprintf("**Sub-periods:** %d\n\n", len(result.SubPeriods)))

	sb.WriteString("| Start | End | Start Value | End Value | Net Flow | Dividends | Return |\n")
	sb.WriteString("|-------|-----|-------------|-----------|----------|-----------|--------|\n")
	for _, p := range result.SubPeriods {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			p.Start.Format("2006-01-02"),
			p.End.Format("2006-01-02"),
			FormatMoney(p.StartValue, currency),
			FormatMoney(p.EndValue, currency),
			FormatSignedMoney(p.NetExternalFlow, currency),
			FormatMoney(p.Dividends, currency),
			FormatPct(p.Return.Mul(decimal.NewFromInt(100))),
		))
	}
	sb.WriteString("\n")
	sb.WriteString(FormatDiagnostics(result.Diagnostics))
	return sb.String()
}

// FormatDiagnostics renders accumulated notices and warnings as a list.
func FormatDiagnostics(diags []models.Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Diagnostics\n\n")
	for _, d := range diags {
		sb.WriteString(fmt.Sprintf("- **%s:** %s\n", strings.ToUpper(string(d.Severity)), d.Message))
	}
	sb.WriteString("\n")
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
