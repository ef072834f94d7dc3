package valuation

import (
	"fmt"
	"math"

	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/table"
)

// Trailing window (in years, ending at the base year) over which the
// effective tax rate and the D&A/capex/NWC ratios are medianed.
const trailingWindow = 3

// Effective tax rate clamp bounds, guarding against distortive one-off tax
// years.
const (
	taxRateFloor = 0.05
	taxRateCeil  = 0.25
)

// Assumptions are the derived drivers of the FCFF forecast. Every field is
// recorded for auditability.
type Assumptions struct {
	BaseYear       int
	StartYear      int
	Horizon        int
	TerminalGrowth float64

	RevenueCAGR num.Num
	EBITMargin  num.Num
	TaxRate     num.Num
	DARatio     num.Num
	CapexRatio  num.Num
	NWCRatio    num.Num
}

// ProjectionYear is one forecast year of the FCFF build-up.
type ProjectionYear struct {
	Year     int
	Revenue  num.Num
	EBIT     num.Num
	NOPAT    num.Num
	DA       num.Num
	Capex    num.Num
	NWCLevel num.Num
	DeltaNWC num.Num
	FCFF     num.Num
}

// MarketInputs are the externally sourced figures the DCF needs beyond the
// statement views. Monetary figures are in the configured unit.
type MarketInputs struct {
	RiskFreeRate      float64
	Beta              num.Num
	ERP               float64
	ERPSource         string
	MarketCapEquity   num.Num
	SharesOutstanding num.Num
}

// DCFResult is the full valuation record: assumptions, discount rate,
// projection, and outputs. Every intermediate is inspectable.
type DCFResult struct {
	Assumptions Assumptions
	WACC        WACCResult
	Projection  []ProjectionYear

	TerminalValue        num.Num
	TerminalValueInvalid bool // set when WACC <= terminal growth
	PVFCFF               num.Num
	PVTerminal           num.Num
	EnterpriseValue      num.Num
	Debt                 num.Num
	Cash                 num.Num
	EquityValue          num.Num
	SharesOutstanding    num.Num
	ImpliedPrice         num.Num
}

// DeriveAssumptions extracts the forecast drivers from the statement views.
//
// FORMULA: EBIT margin   = base-year operating income / base-year revenue
// FORMULA: tax rate      = clamp(median(tax expense / pre-tax income), 5%, 25%)
// FORMULA: revenue CAGR  = (rev_base / rev_start)^(1/(base-start)) - 1
//
// D&A, capex, and NWC-level ratios are trailing-window medians against
// revenue. NWC level = current assets - current liabilities.
func DeriveAssumptions(baseYear, startYear, horizon int, terminalGrowth float64, is, bs, cf *table.Table) (Assumptions, error) {
	rev0 := metricAt(is, "revenue", baseYear)
	ebit0 := metricAt(is, "operating_income", baseYear)
	if !rev0.Valid || rev0.Float64 == 0 {
		return Assumptions{}, fmt.Errorf("base year %d revenue unavailable, cannot anchor forecast", baseYear)
	}
	if !ebit0.Valid {
		return Assumptions{}, fmt.Errorf("base year %d operating income unavailable", baseYear)
	}

	taxRate := windowMedian(baseYear, trailingWindow,
		func(y int) num.Num { return metricAt(is, "income_tax_expense", y) },
		func(y int) num.Num { return metricAt(is, "income_before_tax", y) },
	).Clamp(taxRateFloor, taxRateCeil)

	daRatio := windowMedian(baseYear, trailingWindow,
		func(y int) num.Num { return metricAt(cf, "depreciation_and_amortization", y) },
		func(y int) num.Num { return metricAt(is, "revenue", y) },
	)
	capexRatio := windowMedian(baseYear, trailingWindow,
		func(y int) num.Num { return metricAt(cf, "capex_outflow", y) },
		func(y int) num.Num { return metricAt(is, "revenue", y) },
	)
	nwcRatio := windowMedian(baseYear, trailingWindow,
		func(y int) num.Num { return nwcLevel(bs, y) },
		func(y int) num.Num { return metricAt(is, "revenue", y) },
	)

	revStart := metricAt(is, "revenue", startYear)
	n := baseYear - startYear
	cagr := num.None
	if n > 0 {
		cagr = rev0.Div(revStart).Pow(1.0 / float64(n)).Sub(num.F(1))
	}

	return Assumptions{
		BaseYear:       baseYear,
		StartYear:      startYear,
		Horizon:        horizon,
		TerminalGrowth: terminalGrowth,
		RevenueCAGR:    cagr,
		EBITMargin:     ebit0.Div(rev0),
		TaxRate:        taxRate,
		DARatio:        daRatio,
		CapexRatio:     capexRatio,
		NWCRatio:       nwcRatio,
	}, nil
}

func nwcLevel(bs *table.Table, year int) num.Num {
	return metricAt(bs, "current_assets", year).Sub(metricAt(bs, "current_liabilities", year))
}

// Project builds the explicit FCFF forecast from the assumptions.
//
// Per forecast year i (1..horizon):
//
//	revenue_i = rev_base * (1+CAGR)^i
//	EBIT      = revenue * EBIT margin
//	NOPAT     = EBIT * (1 - tax rate)
//	FCFF      = NOPAT + D&A - capex - dNWC
//
// The first forecast year's dNWC anchors to the actual base-year NWC level
// rather than the ratio-implied one, keeping the forecast continuous with
// the reported balance sheet.
func Project(a Assumptions, baseRevenue, baseNWC num.Num) []ProjectionYear {
	one := num.F(1)
	growth := one.Add(a.RevenueCAGR)

	out := make([]ProjectionYear, a.Horizon)
	prevNWC := baseNWC
	for i := 1; i <= a.Horizon; i++ {
		rev := baseRevenue.Mul(growth.Pow(float64(i)))
		ebit := rev.Mul(a.EBITMargin)
		nopat := ebit.Mul(one.Sub(a.TaxRate))
		da := rev.Mul(a.DARatio)
		capex := rev.Mul(a.CapexRatio)
		nwc := rev.Mul(a.NWCRatio)
		delta := nwc.Sub(prevNWC)

		out[i-1] = ProjectionYear{
			Year:     a.BaseYear + i,
			Revenue:  rev,
			EBIT:     ebit,
			NOPAT:    nopat,
			DA:       da,
			Capex:    capex,
			NWCLevel: nwc,
			DeltaNWC: delta,
			FCFF:     nopat.Add(da).Sub(capex).Sub(delta),
		}
		prevNWC = nwc
	}
	return out
}

// RunDCF executes the full FCFF valuation against the statement views.
func RunDCF(baseYear, startYear, horizon int, terminalGrowth float64,
	is, bs, cf *table.Table, market MarketInputs) (*DCFResult, error) {

	a, err := DeriveAssumptions(baseYear, startYear, horizon, terminalGrowth, is, bs, cf)
	if err != nil {
		return nil, err
	}

	baseRevenue := metricAt(is, "revenue", baseYear)
	projection := Project(a, baseRevenue, nwcLevel(bs, baseYear))

	wacc := ComputeWACC(WACCInput{
		RiskFreeRate:    market.RiskFreeRate,
		Beta:            market.Beta,
		ERP:             market.ERP,
		ERPSource:       market.ERPSource,
		InterestExpense: metricAt(is, "interest_expense", baseYear),
		LongTermDebt:    metricAt(bs, "long_term_debt", baseYear),
		ShortTermDebt:   metricAt(bs, "short_term_debt", baseYear),
		MarketCapEquity: market.MarketCapEquity,
		TaxRate:         a.TaxRate,
	})

	res := &DCFResult{
		Assumptions:       a,
		WACC:              wacc,
		Projection:        projection,
		Debt:              metricAt(bs, "long_term_debt", baseYear).Add(metricAt(bs, "short_term_debt", baseYear)),
		Cash:              metricAt(bs, "cash_and_cash_equivalents", baseYear),
		SharesOutstanding: market.SharesOutstanding,
	}

	finalFCFF := num.None
	if len(projection) > 0 {
		finalFCFF = projection[len(projection)-1].FCFF
	}

	// Terminal value (Gordon growth). A discount rate at or below the
	// terminal growth has no finite perpetuity value; flag it instead of
	// emitting a negative or exploding number.
	g := terminalGrowth
	if !wacc.WACC.Valid || wacc.WACC.Float64 <= g {
		res.TerminalValueInvalid = true
	} else {
		res.TerminalValue = finalFCFF.Mul(num.F(1 + g)).Div(num.F(wacc.WACC.Float64 - g))

		pv := num.F(0)
		for i, p := range projection {
			discount := math.Pow(1+wacc.WACC.Float64, float64(i+1))
			pv = pv.Add(p.FCFF.Div(num.F(discount)))
		}
		res.PVFCFF = pv
		res.PVTerminal = res.TerminalValue.Div(num.F(math.Pow(1+wacc.WACC.Float64, float64(horizon))))
		res.EnterpriseValue = res.PVFCFF.Add(res.PVTerminal)
		res.EquityValue = res.EnterpriseValue.Sub(res.Debt.Sub(res.Cash))

		if market.SharesOutstanding.Valid && market.SharesOutstanding.Float64 > 0 {
			res.ImpliedPrice = res.EquityValue.Div(market.SharesOutstanding)
		}
	}

	return res, nil
}

// FCFFTable pivots the projection into a metric-by-year table for the
// artifact writer and the memo prompt.
func (r *DCFResult) FCFFTable() *table.Table {
	years := make([]int, len(r.Projection))
	for i, p := range r.Projection {
		years[i] = p.Year
	}
	t := table.New("metric", table.YearCols(years)...)
	for _, p := range r.Projection {
		col := fmt.Sprintf("%d", p.Year)
		t.Set("Revenue", col, p.Revenue)
		t.Set("EBIT", col, p.EBIT)
		t.Set("NOPAT", col, p.NOPAT)
		t.Set("D&A", col, p.DA)
		t.Set("CapEx", col, p.Capex)
		t.Set("ΔNWC", col, p.DeltaNWC)
		t.Set("FCFF", col, p.FCFF)
	}
	return t
}
