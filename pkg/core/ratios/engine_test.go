package ratios

import (
	"math"
	"strconv"
	"testing"

	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/statements"
)

func mergedFixture() []statements.MergedRow {
	year := func(y int, revenue, gross, op, ni, interest float64,
		assets, equity, curA, curL, ltd, std float64,
		cfo, fcf float64) statements.MergedRow {
		return statements.MergedRow{
			FiscalYear: y,
			Income: statements.IncomeRow{
				FiscalYear:      y,
				Revenue:         num.F(revenue),
				GrossProfit:     num.F(gross),
				OperatingIncome: num.F(op),
				NetIncome:       num.F(ni),
				InterestExpense: num.F(interest),
			},
			Balance: statements.BalanceRow{
				FiscalYear:         y,
				TotalAssets:        num.F(assets),
				ShareholderEquity:  num.F(equity),
				CurrentAssets:      num.F(curA),
				CurrentLiabilities: num.F(curL),
				LongTermDebt:       num.F(ltd),
				ShortTermDebt:      num.F(std),
			},
			Cashflow: statements.CashflowRow{
				FiscalYear:        y,
				OperatingCashFlow: num.F(cfo),
				FreeCashFlow:      num.F(fcf),
			},
		}
	}
	return []statements.MergedRow{
		year(2023, 27.0, 15.4, 5.6, 4.4, 0.26, 41.2, 22.1, 23.1, 6.6, 9.7, 1.2, 5.6, 3.8),
		year(2024, 60.9, 44.3, 33.0, 29.8, 0.26, 65.7, 43.0, 44.3, 10.6, 8.5, 1.3, 28.1, 27.0),
	}
}

func TestProfitabilityRatios(t *testing.T) {
	res := Compute(mergedFixture())

	gm := res.Profitability.GetYear(GrossMargin, 2024)
	if math.Abs(gm.Float64-44.3/60.9) > 1e-12 {
		t.Errorf("gross margin wrong: %v", gm)
	}

	// ROA uses the two-year average asset base.
	roa := res.Profitability.GetYear(ROA, 2024)
	want := 29.8 / ((41.2 + 65.7) / 2)
	if math.Abs(roa.Float64-want) > 1e-12 {
		t.Errorf("ROA expected %f, got %v", want, roa)
	}

	// First year has no prior-year average.
	if res.Profitability.GetYear(ROA, 2023).Valid {
		t.Error("first-year ROA must be undefined")
	}
	if res.Profitability.GetYear(ROE, 2023).Valid {
		t.Error("first-year ROE must be undefined")
	}
}

func TestGrowthUndefinedExactlyForFirstYear(t *testing.T) {
	res := Compute(mergedFixture())

	for _, row := range []string{RevenueYoY, NetIncomeYoY, FCFYoY} {
		if res.Growth.GetYear(row, 2023).Valid {
			t.Errorf("%s: first year must be undefined", row)
		}
		if !res.Growth.GetYear(row, 2024).Valid {
			t.Errorf("%s: later year must be defined", row)
		}
	}

	rev := res.Growth.GetYear(RevenueYoY, 2024)
	want := (60.9 - 27.0) / 27.0
	if math.Abs(rev.Float64-want) > 1e-12 {
		t.Errorf("revenue YoY expected %f, got %v", want, rev)
	}
}

func TestLeverageEdgeCases(t *testing.T) {
	rows := mergedFixture()
	// Zero interest expense: coverage is undefined, not infinite.
	rows[1].Income.InterestExpense = num.F(0)
	// Missing short-term debt: total debt still defined from long-term alone.
	rows[1].Balance.ShortTermDebt = num.None

	res := Compute(rows)
	if res.Leverage.GetYear(InterestCoverage, 2024).Valid {
		t.Error("zero interest expense must leave coverage undefined")
	}

	de := res.Leverage.GetYear(DebtToEquity, 2024)
	want := 8.5 / 43.0
	if math.Abs(de.Float64-want) > 1e-12 {
		t.Errorf("debt-to-equity with null-skipped component: expected %f, got %v", want, de)
	}
}

func TestYearIndexSubsetProperty(t *testing.T) {
	merged := mergedFixture()
	res := Compute(merged)

	inputYears := map[string]bool{}
	for _, m := range merged {
		inputYears[strconv.Itoa(m.FiscalYear)] = true
	}
	for _, tab := range []interface{ Cols() []string }{res.Profitability, res.Leverage, res.Growth, res.Efficiency} {
		for _, c := range tab.Cols() {
			if !inputYears[c] {
				t.Errorf("output year %s not in input year set", c)
			}
		}
	}
}
