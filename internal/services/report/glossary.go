package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// Glossary returns the definitions of every figure in the summary report.
func Glossary() []models.GlossaryCategory {
	return []models.GlossaryCategory{
		{
			Name: "Holdings",
			Terms: []models.GlossaryTerm{
				{
					Term:       "cost_basis",
					Label:      "Cost Basis",
					Definition: "Remaining purchase cost of the shares still held, using the weighted-average cost method.",
					Formula:    "sold cost = total cost × sold / total quantity",
				},
				{
					Term:       "realized_gain",
					Label:      "Realized Gain",
					Definition: "Sale proceeds minus the weighted-average cost of the shares sold.",
				},
				{
					Term:       "unrealized_gain",
					Label:      "Unrealized Gain",
					Definition: "Current value of the shares held minus their cost basis.",
					Formula:    "shares × current price − cost basis",
				},
				{
					Term:       "weight",
					Label:      "Weight",
					Definition: "Share of total holdings value, in percent.",
				},
			},
		},
		{
			Name: "Performance",
			Terms: []models.GlossaryTerm{
				{
					Term:       "xirr",
					Label:      "XIRR",
					Definition: "Annualized money-weighted return: the rate at which the discounted cash flows sum to zero.",
					Formula:    "Σ amountᵢ / (1 + r)^(daysᵢ / 365) = 0",
				},
				{
					Term:       "twr",
					Label:      "TWR",
					Definition: "Time-weighted return: sub-period returns between deposits and withdrawals, compounded.",
					Formula:    "Π(1 + rᵢ) − 1",
				},
				{
					Term:       "simple_return",
					Label:      "Simple Return",
					Definition: "Portfolio value against net capital deposited.",
					Formula:    "(portfolio value − net capital) / net capital × 100",
				},
			},
		},
	}
}

// FormatGlossary renders glossary categories as markdown.
func FormatGlossary(categories []models.GlossaryCategory) string {
	var sb strings.Builder
	sb.WriteString("## Glossary\n\n")
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("### %s\n\n", c.Name))
		for _, t := range c.Terms {
			sb.WriteString(fmt.Sprintf("- **%s**: %s", t.Label, t.Definition))
			if t.Formula != "" {
				sb.WriteString(fmt.Sprintf(" `%s`", t.Formula))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
