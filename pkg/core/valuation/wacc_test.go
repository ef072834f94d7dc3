package valuation

import (
	"math"
	"testing"

	"fundamental_valuation/pkg/core/num"
)

func waccFixture() WACCInput {
	return WACCInput{
		RiskFreeRate:    0.04,
		Beta:            num.F(1.2),
		ERP:             0.05,
		ERPSource:       "test",
		InterestExpense: num.F(2.0),
		LongTermDebt:    num.F(30.0),
		ShortTermDebt:   num.F(10.0),
		MarketCapEquity: num.F(160.0),
		TaxRate:         num.F(0.21),
	}
}

func TestComputeWACC(t *testing.T) {
	res := ComputeWACC(waccFixture())

	// Re = 0.04 + 1.2*0.05 = 0.10
	if math.Abs(res.CostOfEquity.Float64-0.10) > 1e-12 {
		t.Errorf("cost of equity expected 0.10, got %v", res.CostOfEquity)
	}
	// Rd = 2 / (30+10) = 0.05
	if math.Abs(res.CostOfDebt.Float64-0.05) > 1e-12 {
		t.Errorf("cost of debt expected 0.05, got %v", res.CostOfDebt)
	}
	// wE = 160/200, wD = 40/200
	if math.Abs(res.WeightEquity.Float64-0.8) > 1e-12 || math.Abs(res.WeightDebt.Float64-0.2) > 1e-12 {
		t.Errorf("weights wrong: wE=%v wD=%v", res.WeightEquity, res.WeightDebt)
	}
	want := 0.8*0.10 + 0.2*0.05*(1-0.21)
	if math.Abs(res.WACC.Float64-want) > 1e-12 {
		t.Errorf("WACC expected %f, got %v", want, res.WACC)
	}
}

func TestWACCNegativeInterestExpense(t *testing.T) {
	in := waccFixture()
	in.InterestExpense = num.F(-2.0)

	res := ComputeWACC(in)
	if math.Abs(res.CostOfDebt.Float64-0.05) > 1e-12 {
		t.Errorf("sign of interest expense must not flip Rd: %v", res.CostOfDebt)
	}
}

func TestWACCUndefinedPropagation(t *testing.T) {
	t.Run("missing beta", func(t *testing.T) {
		in := waccFixture()
		in.Beta = num.None
		res := ComputeWACC(in)
		if res.CostOfEquity.Valid || res.WACC.Valid {
			t.Errorf("missing beta must sink Re and WACC: Re=%v WACC=%v", res.CostOfEquity, res.WACC)
		}
		// Debt-side components stand on their own.
		if !res.CostOfDebt.Valid {
			t.Error("cost of debt should survive a missing beta")
		}
	})

	t.Run("zero debt", func(t *testing.T) {
		in := waccFixture()
		in.LongTermDebt = num.F(0)
		in.ShortTermDebt = num.F(0)
		res := ComputeWACC(in)
		if res.CostOfDebt.Valid {
			t.Errorf("zero debt must leave Rd undefined, got %v", res.CostOfDebt)
		}
		if res.WACC.Valid {
			t.Errorf("undefined Rd must sink the blend, got %v", res.WACC)
		}
		if math.Abs(res.WeightEquity.Float64-1.0) > 1e-12 {
			t.Errorf("all-equity weight expected 1, got %v", res.WeightEquity)
		}
	})

	t.Run("missing market cap", func(t *testing.T) {
		in := waccFixture()
		in.MarketCapEquity = num.None
		res := ComputeWACC(in)
		if res.WeightEquity.Valid || res.WeightDebt.Valid || res.WACC.Valid {
			t.Error("missing market cap must leave weights and WACC undefined")
		}
	})
}
