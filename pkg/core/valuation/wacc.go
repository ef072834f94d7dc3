// Package valuation implements the discount-rate estimation and the FCFF
// discounted cash flow model. The package has no I/O: every external input
// (market data, resolved ERP, statement views) arrives through the input
// structs, so the arithmetic is fully unit-testable in isolation.
package valuation

import (
	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/table"
)

// WACCInput carries the market and base-year statement figures the cost of
// capital estimate needs. Monetary figures are in the configured unit.
type WACCInput struct {
	RiskFreeRate float64 // decimal, e.g. 0.045
	Beta         num.Num // undefined if the provider has no beta
	ERP          float64 // equity risk premium, decimal
	ERPSource    string  // provenance of the ERP estimate

	InterestExpense num.Num // base-year, absolute value applied internally
	LongTermDebt    num.Num // base-year
	ShortTermDebt   num.Num // base-year
	MarketCapEquity num.Num // market value of equity
	TaxRate         num.Num // effective rate, decimal
}

// WACCResult records every component of the blended discount rate so the
// memo and run manifest can audit the estimate.
type WACCResult struct {
	RiskFreeRate float64
	Beta         num.Num
	ERP          float64
	ERPSource    string
	CostOfEquity num.Num
	CostOfDebt   num.Num
	TaxRate      num.Num
	Debt         num.Num
	Equity       num.Num
	WeightEquity num.Num
	WeightDebt   num.Num
	WACC         num.Num
}

// ComputeWACC blends cost of equity and after-tax cost of debt by capital
// weights.
//
// FORMULA: Re = rf + beta * ERP            (CAPM)
// FORMULA: Rd = |interest expense| / D     (base-year statement proxy)
// FORMULA: WACC = wE*Re + wD*Rd*(1 - T)
//
// Undefined inputs propagate: a missing beta leaves Re, and therefore the
// WACC, undefined. The DCF tolerates that rather than crashing.
func ComputeWACC(in WACCInput) WACCResult {
	re := in.Beta.Mul(num.F(in.ERP)).Add(num.F(in.RiskFreeRate))

	// Cost of debt is undefined when the company carries no (or unknown)
	// debt, not infinite.
	debt := in.LongTermDebt.Add(in.ShortTermDebt)
	rd := num.None
	if debt.Valid && debt.Float64 > 0 {
		rd = in.InterestExpense.Abs().Div(debt)
	}

	equity := in.MarketCapEquity
	total := debt.Add(equity)
	wE, wD := num.None, num.None
	if total.Valid && total.Float64 > 0 {
		wE = equity.Div(total)
		wD = debt.Div(total)
	}

	afterTaxRd := rd.Mul(num.F(1).Sub(in.TaxRate))
	wacc := wE.Mul(re).Add(wD.Mul(afterTaxRd))

	return WACCResult{
		RiskFreeRate: in.RiskFreeRate,
		Beta:         in.Beta,
		ERP:          in.ERP,
		ERPSource:    in.ERPSource,
		CostOfEquity: re,
		CostOfDebt:   rd,
		TaxRate:      in.TaxRate,
		Debt:         debt,
		Equity:       equity,
		WeightEquity: wE,
		WeightDebt:   wD,
		WACC:         wacc,
	}
}

// windowMedian takes the median of a per-year ratio over the trailing
// window [baseYear-window+1, baseYear], skipping years absent from the
// views. Distortive one-off years wash out of the estimate this way.
func windowMedian(baseYear, window int, numerator func(year int) num.Num, denominator func(year int) num.Num) num.Num {
	vals := make([]num.Num, 0, window)
	for y := baseYear - window + 1; y <= baseYear; y++ {
		vals = append(vals, numerator(y).Div(denominator(y)))
	}
	return num.Median(vals...)
}

// metricAt reads one metric-year cell from a statement view.
func metricAt(view *table.Table, metric string, year int) num.Num {
	return view.GetYear(metric, year)
}
