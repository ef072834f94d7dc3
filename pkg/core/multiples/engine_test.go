package multiples

import (
	"fmt"
	"math"
	"testing"
	"time"

	"fundamental_valuation/pkg/core/config"
	"fundamental_valuation/pkg/core/ingest"
	"fundamental_valuation/pkg/core/num"
)

func asof(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

// quarters builds n quarterly income reports ending backwards from end.
func incomeQuarters(n int, revenue float64) []ingest.Report {
	dates := []string{"2025-01-26", "2024-10-27", "2024-07-28", "2024-04-28", "2024-01-28", "2023-10-29"}
	out := make([]ingest.Report, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ingest.Report{
			"fiscalDateEnding": dates[i],
			"totalRevenue":     fmt.Sprintf("%f", revenue),
			"netIncome":        fmt.Sprintf("%f", revenue/2),
			"operatingIncome":  fmt.Sprintf("%f", revenue/3),
		})
	}
	return out
}

func TestPickLastQuartersRequiresFour(t *testing.T) {
	cutoff := asof(t)

	if got := PickLastQuarters(incomeQuarters(3, 100), cutoff, 4); got != nil {
		t.Errorf("3 qualifying quarters must yield nil, got %d", len(got))
	}

	got := PickLastQuarters(incomeQuarters(5, 100), cutoff, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 quarters, got %d", len(got))
	}
	// Ascending order, most recent last.
	if got[3].FiscalDateEnding() != "2025-01-26" {
		t.Errorf("most recent quarter should be last: %s", got[3].FiscalDateEnding())
	}
	if got[0].FiscalDateEnding() != "2024-04-28" {
		t.Errorf("window start wrong: %s", got[0].FiscalDateEnding())
	}
}

func TestPickLastQuartersHonorsCutoff(t *testing.T) {
	// The 2025-01-26 quarter is after a 2025-01-01 cutoff and must be
	// excluded, leaving 5 of 6 qualifying.
	cutoff, _ := time.Parse("2006-01-02", "2025-01-01")
	got := PickLastQuarters(incomeQuarters(6, 100), cutoff, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 quarters, got %d", len(got))
	}
	if got[3].FiscalDateEnding() != "2024-10-27" {
		t.Errorf("cutoff not applied: %s", got[3].FiscalDateEnding())
	}
}

func TestAggregateTTMIncomeInsufficientQuarters(t *testing.T) {
	got := AggregateTTMIncome(incomeQuarters(3, 100), asof(t))
	if got.Revenue.Valid || got.NetIncome.Valid || got.EBIT.Valid {
		t.Error("partial data must never yield a partial-sum TTM")
	}
}

func TestAggregateTTMIncomeEBITFallback(t *testing.T) {
	qs := incomeQuarters(4, 90)
	// One quarter reports ebit directly; the rest fall back to
	// operatingIncome (30 each).
	qs[0]["ebit"] = "33"

	got := AggregateTTMIncome(qs, asof(t))
	if math.Abs(got.EBIT.Float64-(33+3*30)) > 1e-9 {
		t.Errorf("expected EBIT 123, got %v", got.EBIT)
	}

	// An undefined EBIT in any quarter sinks the whole TTM value.
	delete(qs[1], "operatingIncome")
	got = AggregateTTMIncome(qs, asof(t))
	if got.EBIT.Valid {
		t.Error("one undefined quarter must make TTM EBIT undefined")
	}
	// Revenue is unaffected by the EBIT gap.
	if !got.Revenue.Valid {
		t.Error("revenue TTM must survive an EBIT-only gap")
	}
}

func TestAggregateTTMDepreciationKeyPreference(t *testing.T) {
	dates := []string{"2024-04-28", "2024-07-28", "2024-10-27", "2025-01-26"}
	qs := make([]ingest.Report, 4)
	for i, d := range dates {
		qs[i] = ingest.Report{"fiscalDateEnding": d}
	}
	qs[0]["depreciationDepletionAndAmortization"] = "10"
	qs[1]["depreciationAndAmortization"] = "11"
	qs[2]["depreciation"] = "12"
	// Preferred key wins even when a lower-priority key is also present.
	qs[3]["depreciationDepletionAndAmortization"] = "13"
	qs[3]["depreciation"] = "99"

	got, lastQ := AggregateTTMDepreciation(qs, asof(t))
	if math.Abs(got.Float64-46) > 1e-9 {
		t.Errorf("expected 46, got %v", got)
	}
	if lastQ != "2025-01-26" {
		t.Errorf("wrong last quarter: %s", lastQ)
	}
}

func TestTakeBalanceSnapshot(t *testing.T) {
	qs := []ingest.Report{
		{
			"fiscalDateEnding":                      "2024-10-27",
			"cashAndCashEquivalentsAtCarryingValue": "9107",
			"longTermDebt":                          "8459",
			// shortLongTermDebtTotal missing -> treated as zero
		},
		{
			"fiscalDateEnding":                      "2025-01-26",
			"cashAndCashEquivalentsAtCarryingValue": "8589",
			"longTermDebt":                          "8463",
			"shortLongTermDebtTotal":                "1250",
		},
	}
	snap := TakeBalanceSnapshot(qs, asof(t))
	// Latest single report, not a sum.
	if snap.QuarterUsed != "2025-01-26" {
		t.Errorf("wrong snapshot quarter: %s", snap.QuarterUsed)
	}
	if math.Abs(snap.TotalDebt.Float64-9713) > 1e-9 {
		t.Errorf("expected total debt 9713, got %v", snap.TotalDebt)
	}

	// Missing component counts as zero.
	early, _ := time.Parse("2006-01-02", "2024-11-01")
	snap = TakeBalanceSnapshot(qs, early)
	if math.Abs(snap.TotalDebt.Float64-8459) > 1e-9 {
		t.Errorf("expected total debt 8459, got %v", snap.TotalDebt)
	}

	// No qualifying report at all.
	none, _ := time.Parse("2006-01-02", "2020-01-01")
	snap = TakeBalanceSnapshot(qs, none)
	if snap.Cash.Valid || snap.TotalDebt.Valid {
		t.Error("no qualifying balance report must leave snapshot undefined")
	}
}

func TestComputeMultiplesZeroDenominators(t *testing.T) {
	peers := []PeerRow{{
		Ticker:       "ZERO",
		MarketCap:    num.F(100),
		TotalDebt:    num.F(10),
		Cash:         num.F(5),
		NetIncomeTTM: num.F(0),
		EBITDATTM:    num.F(0),
		RevenueTTM:   num.F(0),
	}}
	m := ComputeMultiples(peers)
	for _, col := range []string{ColPE, ColEVEBITDA, ColEVSales} {
		if m.Get("ZERO", col).Valid {
			t.Errorf("%s: zero denominator must yield undefined, not a value", col)
		}
	}
}

func TestComputeMultiplesAndBenchmarks(t *testing.T) {
	peers := []PeerRow{{
		Ticker:       "NVDA",
		MarketCap:    num.F(3000),
		TotalDebt:    num.F(10),
		Cash:         num.F(40),
		NetIncomeTTM: num.F(72),
		EBITDATTM:    num.F(88),
		RevenueTTM:   num.F(130),
	}}
	m := ComputeMultiples(peers)

	ev := 3000.0 + 10 - 40
	if got := m.Get("NVDA", ColPE); math.Abs(got.Float64-3000.0/72) > 1e-9 {
		t.Errorf("P/E wrong: %v", got)
	}
	if got := m.Get("NVDA", ColEVEBITDA); math.Abs(got.Float64-ev/88) > 1e-9 {
		t.Errorf("EV/EBITDA wrong: %v", got)
	}
	if got := m.Get("NVDA", ColEVSales); math.Abs(got.Float64-ev/130) > 1e-9 {
		t.Errorf("EV/Sales wrong: %v", got)
	}

	AddBenchmarks(m, []config.BenchmarkRow{
		{Label: "Semiconductor Avg", PE: 37.29, EVEBITDA: 42.70, EVSales: 15.70},
	})
	if got := m.Get("Semiconductor Avg", ColEVSales); got.Float64 != 15.70 {
		t.Errorf("benchmark row not literal: %v", got)
	}
	if rows := m.Rows(); rows[len(rows)-1] != "Semiconductor Avg" {
		t.Errorf("benchmarks must append after peers: %v", rows)
	}
}

func TestAssemblePeerRowScalesUnits(t *testing.T) {
	incomeQ := incomeQuarters(4, 30e9)
	dates := []string{"2024-04-28", "2024-07-28", "2024-10-27", "2025-01-26"}
	cfQ := make([]ingest.Report, 4)
	for i, d := range dates {
		cfQ[i] = ingest.Report{"fiscalDateEnding": d, "depreciationDepletionAndAmortization": "400000000"}
	}
	bsQ := []ingest.Report{{
		"fiscalDateEnding":                      "2025-01-26",
		"cashAndCashEquivalentsAtCarryingValue": "8589000000",
		"longTermDebt":                          "8463000000",
	}}
	ov := ingest.Report{
		"MarketCapitalization": "3000000000000",
		"SharesOutstanding":    "24400000000",
	}

	row := AssemblePeerRow("NVDA", incomeQ, cfQ, bsQ, ov, asof(t), 1e9)

	if math.Abs(row.RevenueTTM.Float64-120) > 1e-9 {
		t.Errorf("revenue TTM in billions expected 120, got %v", row.RevenueTTM)
	}
	if math.Abs(row.MarketCap.Float64-3000) > 1e-9 {
		t.Errorf("market cap scaling wrong: %v", row.MarketCap)
	}
	// Implied price is a per-share figure, never rescaled.
	want := 3000000000000.0 / 24400000000.0
	if math.Abs(row.ImpliedPrice.Float64-want) > 1e-6 {
		t.Errorf("implied price expected %f, got %v", want, row.ImpliedPrice)
	}
	// EBITDA = EBIT + D&A = 4*10e9 + 4*0.4e9, in billions.
	if math.Abs(row.EBITDATTM.Float64-41.6) > 1e-9 {
		t.Errorf("EBITDA expected 41.6, got %v", row.EBITDATTM)
	}
}
