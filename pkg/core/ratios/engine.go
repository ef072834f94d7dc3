// Package ratios derives profitability, leverage, growth, and efficiency
// ratios from the merged annual statement table. The engine is a pure
// transform: missing inputs and zero denominators surface as undefined
// values, never as errors.
package ratios

import (
	"fmt"

	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/statements"
	"fundamental_valuation/pkg/core/table"
)

// Row display names, shared with charts and the memo prompt.
const (
	GrossMargin      = "Gross margin"
	OperatingMargin  = "Operating margin"
	NetMargin        = "Net margin"
	ROA              = "ROA"
	ROE              = "ROE"
	DebtToEquity     = "Debt-to-Equity"
	CurrentRatio     = "Current Ratio"
	InterestCoverage = "Interest Coverage"
	RevenueYoY       = "Revenue YoY Growth"
	NetIncomeYoY     = "Net Income YoY Growth"
	FCFYoY           = "FCF YoY Growth"
	AssetTurnover    = "Asset Turnover"
	FCFMargin        = "FCF Margin"
	CFOToNetIncome   = "CFO / Net Income"
)

// Result bundles the four ratio tables (ratio name x fiscal year) and the
// combined per-year computation table used for charting.
type Result struct {
	Profitability *table.Table
	Leverage      *table.Table
	Growth        *table.Table
	Efficiency    *table.Table
	Calc          *table.Table
}

// yoy is year-over-year percent change: (cur - prev) / prev.
func yoy(cur, prev num.Num) num.Num {
	return cur.Sub(prev).Div(prev)
}

// Compute derives all ratio tables from merged rows sorted ascending by
// fiscal year. First-year ROA/ROE, asset turnover, and all growth ratios
// are undefined because no prior-year baseline exists.
func Compute(merged []statements.MergedRow) *Result {
	years := make([]int, len(merged))
	for i, m := range merged {
		years[i] = m.FiscalYear
	}
	cols := table.YearCols(years)

	prof := table.New("ratio", cols...)
	lev := table.New("ratio", cols...)
	gro := table.New("ratio", cols...)
	eff := table.New("ratio", cols...)
	calc := table.New("metric", cols...)

	for i, m := range merged {
		col := fmt.Sprintf("%d", m.FiscalYear)
		is, bs, cf := m.Income, m.Balance, m.Cashflow

		avgAssets := num.None
		avgEquity := num.None
		var prev *statements.MergedRow
		if i > 0 {
			prev = &merged[i-1]
			avgAssets = bs.TotalAssets.Avg(prev.Balance.TotalAssets)
			avgEquity = bs.ShareholderEquity.Avg(prev.Balance.ShareholderEquity)
		}

		// Profitability
		prof.Set(GrossMargin, col, is.GrossProfit.Div(is.Revenue))
		prof.Set(OperatingMargin, col, is.OperatingIncome.Div(is.Revenue))
		prof.Set(NetMargin, col, is.NetIncome.Div(is.Revenue))
		prof.Set(ROA, col, is.NetIncome.Div(avgAssets))
		prof.Set(ROE, col, is.NetIncome.Div(avgEquity))

		// Leverage / liquidity. Total debt skips missing components; a zero
		// interest expense leaves coverage undefined rather than infinite.
		debtTotal := num.SumSkipNone(bs.LongTermDebt, bs.ShortTermDebt)
		lev.Set(DebtToEquity, col, debtTotal.Div(bs.ShareholderEquity))
		lev.Set(CurrentRatio, col, bs.CurrentAssets.Div(bs.CurrentLiabilities))
		lev.Set(InterestCoverage, col, is.OperatingIncome.Div(is.InterestExpense))

		// Growth (YoY)
		if prev != nil {
			gro.Set(RevenueYoY, col, yoy(is.Revenue, prev.Income.Revenue))
			gro.Set(NetIncomeYoY, col, yoy(is.NetIncome, prev.Income.NetIncome))
			gro.Set(FCFYoY, col, yoy(cf.FreeCashFlow, prev.Cashflow.FreeCashFlow))
		} else {
			gro.Set(RevenueYoY, col, num.None)
			gro.Set(NetIncomeYoY, col, num.None)
			gro.Set(FCFYoY, col, num.None)
		}

		// Efficiency
		eff.Set(AssetTurnover, col, is.Revenue.Div(avgAssets))
		eff.Set(FCFMargin, col, cf.FreeCashFlow.Div(is.Revenue))
		eff.Set(CFOToNetIncome, col, cf.OperatingCashFlow.Div(is.NetIncome))

		// Supporting series for the computation table.
		calc.Set("avg_assets", col, avgAssets)
		calc.Set("avg_equity", col, avgEquity)
		calc.Set("debt_total", col, debtTotal)
	}

	// The computation table carries every ratio series plus the supporting
	// averages, for charting and artifact output.
	for _, src := range []*table.Table{prof, lev, gro, eff} {
		for _, row := range src.Rows() {
			for _, col := range cols {
				calc.Set(row, col, src.Get(row, col))
			}
		}
	}

	return &Result{Profitability: prof, Leverage: lev, Growth: gro, Efficiency: eff, Calc: calc}
}
