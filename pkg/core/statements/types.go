// Package statements normalizes raw annual financial reports into
// fixed-schema per-year rows scaled to a common monetary unit, and joins
// them into the merged table the ratio and DCF engines consume.
package statements

import "fundamental_valuation/pkg/core/num"

// IncomeRow is one fiscal year of standardized income statement items.
type IncomeRow struct {
	FiscalYear       int
	FiscalDateEnding string
	Revenue          num.Num
	COGS             num.Num
	GrossProfit      num.Num
	OperatingIncome  num.Num
	NetIncome        num.Num
	InterestExpense  num.Num
	IncomeBeforeTax  num.Num
	IncomeTaxExpense num.Num
}

// BalanceRow is one fiscal year of standardized balance sheet items.
type BalanceRow struct {
	FiscalYear           int
	FiscalDateEnding     string
	TotalAssets          num.Num
	TotalLiabilities     num.Num
	ShareholderEquity    num.Num
	Cash                 num.Num
	CurrentAssets        num.Num
	CurrentLiabilities   num.Num
	LongTermDebt         num.Num
	ShortTermDebt        num.Num
	ShortTermInvestments num.Num
}

// CashflowRow is one fiscal year of standardized cash flow items.
// CapexOutflow is the absolute value of reported capital expenditure;
// FreeCashFlow = OperatingCashFlow - CapexOutflow.
type CashflowRow struct {
	FiscalYear        int
	FiscalDateEnding  string
	OperatingCashFlow num.Num
	Capex             num.Num
	CapexOutflow      num.Num
	FreeCashFlow      num.Num
	DepreciationAmort num.Num
}

// MergedRow is the inner join of the three statements on fiscal year. Only
// years present in all three statements survive the join.
type MergedRow struct {
	FiscalYear int
	Income     IncomeRow
	Balance    BalanceRow
	Cashflow   CashflowRow
}

// Tables bundles the standardized per-statement rows and the merged table,
// all in the configured monetary unit, sorted ascending by fiscal year.
type Tables struct {
	Income   []IncomeRow
	Balance  []BalanceRow
	Cashflow []CashflowRow
	Merged   []MergedRow
}
