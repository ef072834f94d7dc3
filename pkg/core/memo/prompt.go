// Package memo builds the analyst prompt from the computed tables and
// generates the investment memo through a pluggable LLM provider. The
// prompt is always persisted before generation so a failed run can be
// replayed by hand.
package memo

import (
	"fmt"
	"strings"

	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/ratios"
	"fundamental_valuation/pkg/core/table"
	"fundamental_valuation/pkg/core/valuation"
)

func pct(v num.Num) string {
	if !v.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v.Float64*100)
}

func plain(v num.Num) string {
	if !v.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// TrendLine summarizes one ratio row as a single bullet citing the first,
// last, minimum and maximum datapoints with their years. Undefined years
// are skipped; a row with no defined years reads "N/A".
func TrendLine(t *table.Table, row, label string, percent bool) string {
	format := plain
	if percent {
		format = pct
	}

	type point struct {
		year string
		v    num.Num
	}
	var pts []point
	for _, c := range t.Cols() {
		v := t.Get(row, c)
		if v.Valid {
			pts = append(pts, point{c, v})
		}
	}
	if len(pts) == 0 {
		return fmt.Sprintf("- %s: N/A", label)
	}

	first, last := pts[0], pts[len(pts)-1]
	min, max := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.v.Float64 < min.v.Float64 {
			min = p
		}
		if p.v.Float64 > max.v.Float64 {
			max = p
		}
	}
	return fmt.Sprintf("- %s: %s (%s) → %s (%s); min %s (%s), max %s (%s).",
		label,
		format(first.v), first.year, format(last.v), last.year,
		format(min.v), min.year, format(max.v), max.year)
}

func ratioFacts(r *ratios.Result) string {
	var b strings.Builder
	b.WriteString("## Profitability\n")
	b.WriteString(TrendLine(r.Profitability, ratios.GrossMargin, "Gross margin", true) + "\n")
	b.WriteString(TrendLine(r.Profitability, ratios.OperatingMargin, "Operating margin", true) + "\n")
	b.WriteString(TrendLine(r.Profitability, ratios.NetMargin, "Net margin", true) + "\n")
	b.WriteString(TrendLine(r.Profitability, ratios.ROA, "ROA", true) + "\n")
	b.WriteString(TrendLine(r.Profitability, ratios.ROE, "ROE", true) + "\n")

	b.WriteString("\n## Leverage & Liquidity\n")
	b.WriteString(TrendLine(r.Leverage, ratios.DebtToEquity, "Debt-to-Equity", false) + "\n")
	b.WriteString(TrendLine(r.Leverage, ratios.CurrentRatio, "Current ratio", false) + "\n")
	b.WriteString(TrendLine(r.Leverage, ratios.InterestCoverage, "Interest coverage", false) + "\n")

	b.WriteString("\n## Growth\n")
	b.WriteString(TrendLine(r.Growth, ratios.RevenueYoY, "Revenue YoY growth", true) + "\n")
	b.WriteString(TrendLine(r.Growth, ratios.NetIncomeYoY, "Net income YoY growth", true) + "\n")
	b.WriteString(TrendLine(r.Growth, ratios.FCFYoY, "FCF YoY growth", true) + "\n")

	b.WriteString("\n## Efficiency & Cash Conversion\n")
	b.WriteString(TrendLine(r.Efficiency, ratios.AssetTurnover, "Asset turnover", false) + "\n")
	b.WriteString(TrendLine(r.Efficiency, ratios.FCFMargin, "FCF margin", true) + "\n")
	b.WriteString(TrendLine(r.Efficiency, ratios.CFOToNetIncome, "CFO / Net income", false))
	return b.String()
}

func dcfFacts(d *valuation.DCFResult) string {
	a := d.Assumptions
	var b strings.Builder

	b.WriteString("### DCF Assumptions\n")
	fmt.Fprintf(&b, "- Base year: %d\n", a.BaseYear)
	fmt.Fprintf(&b, "- Revenue CAGR (%d→%d): %s\n", a.StartYear, a.BaseYear, pct(a.RevenueCAGR))
	fmt.Fprintf(&b, "- EBIT margin: %s\n", pct(a.EBITMargin))
	fmt.Fprintf(&b, "- Effective tax rate: %s\n", pct(a.TaxRate))
	fmt.Fprintf(&b, "- D&A / revenue: %s\n", pct(a.DARatio))
	fmt.Fprintf(&b, "- CapEx / revenue: %s\n", pct(a.CapexRatio))
	fmt.Fprintf(&b, "- NWC / revenue: %s\n", pct(a.NWCRatio))
	fmt.Fprintf(&b, "- Forecast horizon: %d years\n", a.Horizon)
	fmt.Fprintf(&b, "- Terminal growth: %.2f%%\n", a.TerminalGrowth*100)

	w := d.WACC
	b.WriteString("\n### WACC\n")
	fmt.Fprintf(&b, "- Risk-free rate: %.2f%%\n", w.RiskFreeRate*100)
	fmt.Fprintf(&b, "- Beta: %s\n", plain(w.Beta))
	fmt.Fprintf(&b, "- Equity risk premium: %.2f%% (%s)\n", w.ERP*100, w.ERPSource)
	fmt.Fprintf(&b, "- Cost of equity: %s\n", pct(w.CostOfEquity))
	fmt.Fprintf(&b, "- Cost of debt: %s\n", pct(w.CostOfDebt))
	fmt.Fprintf(&b, "- Equity weight: %s / Debt weight: %s\n", plain(w.WeightEquity), plain(w.WeightDebt))
	fmt.Fprintf(&b, "- WACC: %s\n", pct(w.WACC))

	b.WriteString("\n### Valuation\n")
	if d.TerminalValueInvalid {
		b.WriteString("- Terminal value: not meaningful (discount rate does not exceed terminal growth); no intrinsic value is reported.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- PV of explicit FCFF: %s\n", plain(d.PVFCFF))
	fmt.Fprintf(&b, "- PV of terminal value: %s\n", plain(d.PVTerminal))
	fmt.Fprintf(&b, "- Enterprise value: %s\n", plain(d.EnterpriseValue))
	fmt.Fprintf(&b, "- Total debt: %s / Cash: %s\n", plain(d.Debt), plain(d.Cash))
	fmt.Fprintf(&b, "- Equity value: %s\n", plain(d.EquityValue))
	fmt.Fprintf(&b, "- Implied price per share: %s\n", plain(d.ImpliedPrice))
	return b.String()
}

// BuildPrompt assembles the full analyst prompt: instructions, ratio trend
// facts, the multiples table, and the DCF record.
func BuildPrompt(symbol string, r *ratios.Result, mult *table.Table, dcf *valuation.DCFResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior equity research analyst writing an investment memo for %s.\n\n", symbol)
	b.WriteString(`IMPORTANT:
- This memo is NOT a data summary.
- Your job is to INTERPRET what the computed outputs imply for valuation.
- Use ONLY the provided data. Do NOT introduce new numbers or assumptions.
- If interpretation is uncertain, state uncertainty explicitly.

STRUCTURE (use headings):
1) Business performance & profitability (ratios)
2) Financial risk & liquidity
3) Growth dynamics
4) Multiples valuation and peer comparison
5) DCF valuation and intrinsic value assessment
6) Recommendation and key risks
7) Data sources

ANALYSIS RULES:
- In EACH ratio subsection: cite at least 2 exact datapoints (year + value).
- Explain what changed, why it likely changed, and whether it appears structural or cyclical.
- Explicitly connect ratio behavior to valuation implications (pricing power, risk, sustainability).

=====================
RATIO TABLE FACTS (pre-computed)
=====================
`)
	b.WriteString(ratioFacts(r))
	b.WriteString(`

=====================
MULTIPLES PEER COMPARISON (pre-computed)
=====================
### Multiples (TTM): P/E, EV/EBITDA, EV/Sales
`)
	b.WriteString(mult.Markdown())
	b.WriteString(`
=====================
DCF INPUTS AND OUTPUTS (pre-computed)
=====================
`)
	b.WriteString(dcfFacts(dcf))
	return b.String()
}
