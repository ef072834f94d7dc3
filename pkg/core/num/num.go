// Package num provides an explicit optional numeric type for financial
// arithmetic. Missing or unparseable source data stays missing through every
// derived computation instead of collapsing to zero or panicking.
package num

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Num is a nullable float64. The zero value is undefined.
type Num struct {
	Float64 float64
	Valid   bool
}

// F wraps a defined float64. Non-finite inputs become undefined.
func F(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Num{}
	}
	return Num{Float64: v, Valid: true}
}

// None is the undefined value.
var None = Num{}

// IsZero reports whether the value is defined and exactly zero.
func (n Num) IsZero() bool {
	return n.Valid && n.Float64 == 0
}

// Or returns the value if defined, otherwise fallback.
func (n Num) Or(fallback float64) float64 {
	if n.Valid {
		return n.Float64
	}
	return fallback
}

func (n Num) Add(o Num) Num {
	if !n.Valid || !o.Valid {
		return None
	}
	return F(n.Float64 + o.Float64)
}

func (n Num) Sub(o Num) Num {
	if !n.Valid || !o.Valid {
		return None
	}
	return F(n.Float64 - o.Float64)
}

func (n Num) Mul(o Num) Num {
	if !n.Valid || !o.Valid {
		return None
	}
	return F(n.Float64 * o.Float64)
}

// Div returns n/o. A zero or undefined denominator yields undefined, never
// an infinity or a panic.
func (n Num) Div(o Num) Num {
	if !n.Valid || !o.Valid || o.Float64 == 0 {
		return None
	}
	return F(n.Float64 / o.Float64)
}

func (n Num) Neg() Num {
	if !n.Valid {
		return None
	}
	return F(-n.Float64)
}

func (n Num) Abs() Num {
	if !n.Valid {
		return None
	}
	return F(math.Abs(n.Float64))
}

// Scale divides by a constant unit (e.g. 1e9 to express USD in billions).
func (n Num) Scale(unit float64) Num {
	return n.Div(F(unit))
}

// Pow raises n to exp.
func (n Num) Pow(exp float64) Num {
	if !n.Valid {
		return None
	}
	return F(math.Pow(n.Float64, exp))
}

// Avg returns the mean of n and o, undefined if either is undefined. Used
// for two-point balance averages (ROA, ROE, asset turnover).
func (n Num) Avg(o Num) Num {
	if !n.Valid || !o.Valid {
		return None
	}
	return F((n.Float64 + o.Float64) / 2)
}

// SumStrict sums all values; if any operand is undefined the whole sum is
// undefined. This is the all-or-nothing rule for TTM aggregation.
func SumStrict(vals ...Num) Num {
	total := 0.0
	for _, v := range vals {
		if !v.Valid {
			return None
		}
		total += v.Float64
	}
	return F(total)
}

// SumSkipNone sums the defined values, returning undefined only when every
// operand is undefined. Mirrors a min_count=1 null-skipping sum, used for
// total debt = long-term + short-term.
func SumSkipNone(vals ...Num) Num {
	total := 0.0
	any := false
	for _, v := range vals {
		if v.Valid {
			total += v.Float64
			any = true
		}
	}
	if !any {
		return None
	}
	return F(total)
}

// Median returns the median of the defined values. Undefined when no value
// is defined.
func Median(vals ...Num) Num {
	defined := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v.Valid {
			defined = append(defined, v.Float64)
		}
	}
	if len(defined) == 0 {
		return None
	}
	sort.Float64s(defined)
	mid := len(defined) / 2
	if len(defined)%2 == 1 {
		return F(defined[mid])
	}
	return F((defined[mid-1] + defined[mid]) / 2)
}

// Clamp bounds a defined value into [lo, hi].
func (n Num) Clamp(lo, hi float64) Num {
	if !n.Valid {
		return None
	}
	return F(math.Min(math.Max(n.Float64, lo), hi))
}

// String renders the value for tabular output; undefined renders empty.
func (n Num) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'g', -1, 64)
}

// MarshalJSON encodes undefined as null.
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes null (or a JSON string that fails to parse) as
// undefined.
func (n *Num) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		*n = None
		return nil
	}
	*n = F(*v)
	return nil
}
