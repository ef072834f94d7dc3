package statements

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fundamental_valuation/pkg/core/ingest"
	"fundamental_valuation/pkg/core/num"
)

// yearOf extracts the fiscal year from the 4-digit prefix of a period-end
// date like "2025-01-26".
func yearOf(fiscalDateEnding string) (int, bool) {
	if len(fiscalDateEnding) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(fiscalDateEnding[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// coerce converts a raw field to an integer-valued currency amount.
// Providers report "None" or omit the field entirely; both become undefined
// and stay undefined through downstream arithmetic.
func coerce(r ingest.Report, key string) num.Num {
	raw, ok := r[key]
	if !ok {
		return num.None
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return num.None
	}
	return num.F(float64(d.IntPart()))
}

func yearSet(years []int) map[int]bool {
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	return set
}

// StandardizeIncome filters reports to the configured fiscal years and
// extracts the fixed income statement field set.
func StandardizeIncome(reports []ingest.Report, years []int) ([]IncomeRow, error) {
	keep := yearSet(years)
	var rows []IncomeRow
	for _, r := range reports {
		y, ok := yearOf(r.FiscalDateEnding())
		if !ok || !keep[y] {
			continue
		}
		rows = append(rows, IncomeRow{
			FiscalYear:       y,
			FiscalDateEnding: r.FiscalDateEnding(),
			Revenue:          coerce(r, "totalRevenue"),
			COGS:             coerce(r, "costOfRevenue"),
			GrossProfit:      coerce(r, "grossProfit"),
			OperatingIncome:  coerce(r, "operatingIncome"),
			NetIncome:        coerce(r, "netIncome"),
			InterestExpense:  coerce(r, "interestExpense"),
			IncomeBeforeTax:  coerce(r, "incomeBeforeTax"),
			IncomeTaxExpense: coerce(r, "incomeTaxExpense"),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no usable income statement records for years %v", years)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FiscalYear < rows[j].FiscalYear })
	return rows, nil
}

// StandardizeBalance filters and extracts the fixed balance sheet field set.
func StandardizeBalance(reports []ingest.Report, years []int) ([]BalanceRow, error) {
	keep := yearSet(years)
	var rows []BalanceRow
	for _, r := range reports {
		y, ok := yearOf(r.FiscalDateEnding())
		if !ok || !keep[y] {
			continue
		}
		rows = append(rows, BalanceRow{
			FiscalYear:           y,
			FiscalDateEnding:     r.FiscalDateEnding(),
			TotalAssets:          coerce(r, "totalAssets"),
			TotalLiabilities:     coerce(r, "totalLiabilities"),
			ShareholderEquity:    coerce(r, "totalShareholderEquity"),
			Cash:                 coerce(r, "cashAndCashEquivalentsAtCarryingValue"),
			CurrentAssets:        coerce(r, "totalCurrentAssets"),
			CurrentLiabilities:   coerce(r, "totalCurrentLiabilities"),
			LongTermDebt:         coerce(r, "longTermDebt"),
			ShortTermDebt:        coerce(r, "shortTermDebt"),
			ShortTermInvestments: coerce(r, "shortTermInvestments"),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no usable balance sheet records for years %v", years)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FiscalYear < rows[j].FiscalYear })
	return rows, nil
}

// StandardizeCashflow filters and extracts the fixed cash flow field set.
// Reported capex is usually negative; it is flipped into a non-negative
// outflow, and free cash flow is derived as CFO minus that outflow.
func StandardizeCashflow(reports []ingest.Report, years []int) ([]CashflowRow, error) {
	keep := yearSet(years)
	var rows []CashflowRow
	for _, r := range reports {
		y, ok := yearOf(r.FiscalDateEnding())
		if !ok || !keep[y] {
			continue
		}
		cfo := coerce(r, "operatingCashflow")
		capex := coerce(r, "capitalExpenditures")
		outflow := capex.Abs()
		rows = append(rows, CashflowRow{
			FiscalYear:        y,
			FiscalDateEnding:  r.FiscalDateEnding(),
			OperatingCashFlow: cfo,
			Capex:             capex,
			CapexOutflow:      outflow,
			FreeCashFlow:      cfo.Sub(outflow),
			DepreciationAmort: coerce(r, "depreciationDepletionAndAmortization"),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no usable cash flow records for years %v", years)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FiscalYear < rows[j].FiscalYear })
	return rows, nil
}

func (r *IncomeRow) scale(unit float64) {
	for _, f := range []*num.Num{&r.Revenue, &r.COGS, &r.GrossProfit, &r.OperatingIncome,
		&r.NetIncome, &r.InterestExpense, &r.IncomeBeforeTax, &r.IncomeTaxExpense} {
		*f = f.Scale(unit)
	}
}

func (r *BalanceRow) scale(unit float64) {
	for _, f := range []*num.Num{&r.TotalAssets, &r.TotalLiabilities, &r.ShareholderEquity,
		&r.Cash, &r.CurrentAssets, &r.CurrentLiabilities, &r.LongTermDebt,
		&r.ShortTermDebt, &r.ShortTermInvestments} {
		*f = f.Scale(unit)
	}
}

func (r *CashflowRow) scale(unit float64) {
	for _, f := range []*num.Num{&r.OperatingCashFlow, &r.Capex, &r.CapexOutflow,
		&r.FreeCashFlow, &r.DepreciationAmort} {
		*f = f.Scale(unit)
	}
}

// Build standardizes the three annual payloads, rescales every monetary
// column by unit, and inner-joins on fiscal year in income -> balance ->
// cashflow order.
func Build(income, balance, cashflow *ingest.StatementPayload, years []int, unit float64) (*Tables, error) {
	isRows, err := StandardizeIncome(income.AnnualReports, years)
	if err != nil {
		return nil, err
	}
	bsRows, err := StandardizeBalance(balance.AnnualReports, years)
	if err != nil {
		return nil, err
	}
	cfRows, err := StandardizeCashflow(cashflow.AnnualReports, years)
	if err != nil {
		return nil, err
	}

	for i := range isRows {
		isRows[i].scale(unit)
	}
	for i := range bsRows {
		bsRows[i].scale(unit)
	}
	for i := range cfRows {
		cfRows[i].scale(unit)
	}

	bsByYear := make(map[int]BalanceRow, len(bsRows))
	for _, r := range bsRows {
		bsByYear[r.FiscalYear] = r
	}
	cfByYear := make(map[int]CashflowRow, len(cfRows))
	for _, r := range cfRows {
		cfByYear[r.FiscalYear] = r
	}

	var merged []MergedRow
	for _, is := range isRows {
		bs, okBS := bsByYear[is.FiscalYear]
		cf, okCF := cfByYear[is.FiscalYear]
		if !okBS || !okCF {
			continue
		}
		merged = append(merged, MergedRow{
			FiscalYear: is.FiscalYear,
			Income:     is,
			Balance:    bs,
			Cashflow:   cf,
		})
	}

	return &Tables{Income: isRows, Balance: bsRows, Cashflow: cfRows, Merged: merged}, nil
}
