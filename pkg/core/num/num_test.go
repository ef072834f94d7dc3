package num

import (
	"math"
	"testing"
)

func TestDivByZeroIsUndefined(t *testing.T) {
	got := F(10).Div(F(0))
	if got.Valid {
		t.Errorf("Expected undefined for division by zero, got %f", got.Float64)
	}

	got = F(10).Div(None)
	if got.Valid {
		t.Errorf("Expected undefined for division by undefined, got %f", got.Float64)
	}
}

func TestUndefinedPropagation(t *testing.T) {
	ops := map[string]Num{
		"add": None.Add(F(1)),
		"sub": F(1).Sub(None),
		"mul": None.Mul(None),
		"avg": F(5).Avg(None),
		"pow": None.Pow(2),
	}
	for name, got := range ops {
		if got.Valid {
			t.Errorf("%s: expected undefined result, got %f", name, got.Float64)
		}
	}
}

func TestNonFiniteBecomesUndefined(t *testing.T) {
	if F(math.NaN()).Valid {
		t.Error("NaN should wrap to undefined")
	}
	if F(math.Inf(1)).Valid {
		t.Error("Inf should wrap to undefined")
	}
}

func TestSumStrict(t *testing.T) {
	got := SumStrict(F(1), F(2), F(3))
	if !got.Valid || got.Float64 != 6 {
		t.Errorf("Expected 6, got %v", got)
	}

	// One undefined operand sinks the whole sum (no partial TTM sums).
	got = SumStrict(F(1), None, F(3))
	if got.Valid {
		t.Errorf("Expected undefined, got %f", got.Float64)
	}
}

func TestSumSkipNone(t *testing.T) {
	got := SumSkipNone(F(4), None)
	if !got.Valid || got.Float64 != 4 {
		t.Errorf("Expected 4 with one missing component, got %v", got)
	}

	got = SumSkipNone(None, None)
	if got.Valid {
		t.Errorf("Expected undefined when all components missing, got %f", got.Float64)
	}
}

func TestMedian(t *testing.T) {
	got := Median(F(0.21), F(0.20), F(0.2273))
	if !got.Valid || math.Abs(got.Float64-0.21) > 1e-12 {
		t.Errorf("Expected median 0.21, got %v", got)
	}

	// Even count: mean of middle pair.
	got = Median(F(1), F(2), F(3), F(4))
	if !got.Valid || got.Float64 != 2.5 {
		t.Errorf("Expected 2.5, got %v", got)
	}

	// Undefined entries are skipped, not treated as zero.
	got = Median(None, F(7), None)
	if !got.Valid || got.Float64 != 7 {
		t.Errorf("Expected 7, got %v", got)
	}

	if Median(None, None).Valid {
		t.Error("Median of no defined values should be undefined")
	}
}

func TestClamp(t *testing.T) {
	if got := F(0.5).Clamp(0.05, 0.25); got.Float64 != 0.25 {
		t.Errorf("Expected clamp to 0.25, got %f", got.Float64)
	}
	if got := F(0.01).Clamp(0.05, 0.25); got.Float64 != 0.05 {
		t.Errorf("Expected clamp to 0.05, got %f", got.Float64)
	}
	if None.Clamp(0, 1).Valid {
		t.Error("Clamp of undefined should stay undefined")
	}
}
