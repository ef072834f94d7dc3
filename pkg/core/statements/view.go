package statements

import (
	"fmt"

	"fundamental_valuation/pkg/core/table"
)

func yearCol(year int) string { return fmt.Sprintf("%d", year) }

// IncomeView pivots income rows into a metric-by-fiscal-year table.
func IncomeView(rows []IncomeRow) *table.Table {
	years := make([]int, len(rows))
	for i, r := range rows {
		years[i] = r.FiscalYear
	}
	t := table.New("metric", table.YearCols(years)...)
	for _, r := range rows {
		col := yearCol(r.FiscalYear)
		t.Set("revenue", col, r.Revenue)
		t.Set("cogs", col, r.COGS)
		t.Set("gross_profit", col, r.GrossProfit)
		t.Set("operating_income", col, r.OperatingIncome)
		t.Set("net_income", col, r.NetIncome)
		t.Set("interest_expense", col, r.InterestExpense)
		t.Set("income_before_tax", col, r.IncomeBeforeTax)
		t.Set("income_tax_expense", col, r.IncomeTaxExpense)
	}
	return t
}

// BalanceView pivots balance rows into a metric-by-fiscal-year table.
func BalanceView(rows []BalanceRow) *table.Table {
	years := make([]int, len(rows))
	for i, r := range rows {
		years[i] = r.FiscalYear
	}
	t := table.New("metric", table.YearCols(years)...)
	for _, r := range rows {
		col := yearCol(r.FiscalYear)
		t.Set("total_assets", col, r.TotalAssets)
		t.Set("total_liabilities", col, r.TotalLiabilities)
		t.Set("total_shareholder_equity", col, r.ShareholderEquity)
		t.Set("cash_and_cash_equivalents", col, r.Cash)
		t.Set("current_assets", col, r.CurrentAssets)
		t.Set("current_liabilities", col, r.CurrentLiabilities)
		t.Set("long_term_debt", col, r.LongTermDebt)
		t.Set("short_term_debt", col, r.ShortTermDebt)
		t.Set("short_term_investments", col, r.ShortTermInvestments)
	}
	return t
}

// CashflowView pivots cash flow rows into a metric-by-fiscal-year table.
func CashflowView(rows []CashflowRow) *table.Table {
	years := make([]int, len(rows))
	for i, r := range rows {
		years[i] = r.FiscalYear
	}
	t := table.New("metric", table.YearCols(years)...)
	for _, r := range rows {
		col := yearCol(r.FiscalYear)
		t.Set("operating_cash_flow", col, r.OperatingCashFlow)
		t.Set("capex", col, r.Capex)
		t.Set("capex_outflow", col, r.CapexOutflow)
		t.Set("free_cash_flow", col, r.FreeCashFlow)
		t.Set("depreciation_and_amortization", col, r.DepreciationAmort)
	}
	return t
}
