// Package report renders valuation reports as Markdown and HTML.
package report

import (
	"fmt"
	"math"
	"strings"

	"dcf_valuation/pkg/core/pipeline"
	"dcf_valuation/pkg/core/utils"
	"dcf_valuation/pkg/core/valuation"
)

const notAvailable = "n/a"

// Markdown renders the full report.
func Markdown(r *pipeline.Report) string {
	var sb strings.Builder

	title := r.Ticker
	if r.CompanyName != "" {
		title = fmt.Sprintf("%s (%s)", r.CompanyName, r.Ticker)
	}
	fmt.Fprintf(&sb, "# DCF Valuation: %s\n\n", title)

	k := r.KPIs
	sb.WriteString("## Key Figures\n\n")
	sb.WriteString("| Metric | Value |\n|---|---:|\n")
	row := func(name, value string) { fmt.Fprintf(&sb, "| %s | %s |\n", name, value) }
	row("Last FCF", money(k.LastFCF))
	row("Cash", money(k.Cash))
	row("Debt", money(k.Debt))
	row("Enterprise value", money(k.EnterpriseValue))
	row("PV of terminal value", money(k.TerminalValuePV))
	row("Equity value", money(k.EquityValue))
	row("Shares outstanding", optional(k.SharesOutstanding, money))
	row("Price per share", optional(k.PricePerShare, price))
	row("WACC", pct(k.WACC))
	row("Terminal growth", pct(k.TerminalGrowth))
	row("Stage-1 growth", fmt.Sprintf("%s (%s)", pct(k.Stage1Growth), k.Stage1Source))
	row("Fade years", fmt.Sprintf("%d", k.FadeYears))
	sb.WriteString("\n")

	sb.WriteString(ProjectionTable(r.Projection))

	if r.Sensitivity != nil {
		sb.WriteString("\n")
		sb.WriteString(SensitivityTable(r.Sensitivity))
	}

	if len(r.Footnotes) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, n := range r.Footnotes {
			fmt.Fprintf(&sb, "- %s\n", n)
		}
	}
	return sb.String()
}

// HTML renders the report's Markdown to HTML.
func HTML(r *pipeline.Report) (string, error) {
	return utils.MarkdownToHTML(Markdown(r))
}

// ProjectionTable renders the explicit forecast years.
func ProjectionTable(rows []valuation.YearProjection) string {
	var sb strings.Builder
	sb.WriteString("## Projection\n\n")
	sb.WriteString("| Year | Growth | FCF | PV of FCF |\n|---:|---:|---:|---:|\n")
	for _, p := range rows {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s |\n", p.Year, pct(p.GrowthRate), money(p.FCF), money(p.DiscountedFCF))
	}
	return sb.String()
}

// SensitivityTable renders price per share with WACC down the rows and
// terminal growth across the columns.
func SensitivityTable(g *valuation.SensitivityGrid) string {
	var sb strings.Builder
	sb.WriteString("## Sensitivity (price per share)\n\n")
	sb.WriteString("| WACC \\ g |")
	for _, t := range g.TerminalGrowths {
		fmt.Fprintf(&sb, " %s |", pct(t))
	}
	sb.WriteString("\n|---|")
	for range g.TerminalGrowths {
		sb.WriteString("---:|")
	}
	sb.WriteString("\n")
	for i, w := range g.DiscountRates {
		fmt.Fprintf(&sb, "| %s |", pct(w))
		for j := range g.TerminalGrowths {
			fmt.Fprintf(&sb, " %s |", optional(g.Cell(i, j).Price, price))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.2f", v)
}

func price(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return fmt.Sprintf("$%.2f", v)
}

func optional(v *float64, format func(float64) string) string {
	if v == nil {
		return notAvailable
	}
	return format(*v)
}
