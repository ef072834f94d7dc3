// Package multiples computes trailing-twelve-month valuation multiples
// (P/E, EV/EBITDA, EV/Sales) for a target and its peer set as of a fixed
// cutoff date, plus static benchmark rows.
package multiples

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"fundamental_valuation/pkg/core/ingest"
	"fundamental_valuation/pkg/core/num"
)

// ttmQuarters is the number of quarterly reports a TTM aggregate requires.
// Fewer qualifying quarters means the aggregate is undefined; there is no
// partial-TTM approximation.
const ttmQuarters = 4

// daKeys is the preference-ordered list of cash flow field names that may
// carry depreciation and amortization; the first non-missing wins per
// quarter.
var daKeys = []string{
	"depreciationDepletionAndAmortization",
	"depreciationAndAmortization",
	"depreciation",
}

// toFloat parses a raw report field into a nullable float.
func toFloat(r ingest.Report, key string) num.Num {
	raw, ok := r[key]
	if !ok {
		return num.None
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return num.None
	}
	return num.F(v)
}

func periodEnd(r ingest.Report) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", r.FiscalDateEnding())
	return t, err == nil
}

// PickLastQuarters returns the n most recent reports with period-end date
// on or before asof, ordered ascending by date. If fewer than n qualify it
// returns nil.
func PickLastQuarters(reports []ingest.Report, asof time.Time, n int) []ingest.Report {
	type dated struct {
		t time.Time
		r ingest.Report
	}
	var rows []dated
	for _, r := range reports {
		if t, ok := periodEnd(r); ok && !t.After(asof) {
			rows = append(rows, dated{t, r})
		}
	}
	if len(rows) < n {
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	out := make([]ingest.Report, n)
	for i, d := range rows[len(rows)-n:] {
		out[i] = d.r
	}
	return out
}

// PickLatestReport returns the single most recent report with period-end on
// or before asof, or nil.
func PickLatestReport(reports []ingest.Report, asof time.Time) ingest.Report {
	var best ingest.Report
	var bestT time.Time
	for _, r := range reports {
		if t, ok := periodEnd(r); ok && !t.After(asof) {
			if best == nil || t.After(bestT) {
				best, bestT = r, t
			}
		}
	}
	return best
}

// TTMIncome aggregates the four most recent qualifying quarterly income
// reports. All sums follow the all-or-nothing rule: one undefined quarter
// makes the whole aggregate undefined. EBIT prefers the reported ebit field
// and falls back to operating income per quarter.
type TTMIncome struct {
	Revenue     num.Num
	NetIncome   num.Num
	EBIT        num.Num
	LastQuarter string
}

func AggregateTTMIncome(quarterly []ingest.Report, asof time.Time) TTMIncome {
	last4 := PickLastQuarters(quarterly, asof, ttmQuarters)
	if last4 == nil {
		return TTMIncome{Revenue: num.None, NetIncome: num.None, EBIT: num.None}
	}

	rev := make([]num.Num, len(last4))
	ni := make([]num.Num, len(last4))
	ebit := make([]num.Num, len(last4))
	for i, q := range last4 {
		rev[i] = toFloat(q, "totalRevenue")
		ni[i] = toFloat(q, "netIncome")
		e := toFloat(q, "ebit")
		if !e.Valid {
			e = toFloat(q, "operatingIncome")
		}
		ebit[i] = e
	}
	return TTMIncome{
		Revenue:     num.SumStrict(rev...),
		NetIncome:   num.SumStrict(ni...),
		EBIT:        num.SumStrict(ebit...),
		LastQuarter: last4[len(last4)-1].FiscalDateEnding(),
	}
}

// AggregateTTMDepreciation sums D&A over the four most recent qualifying
// quarterly cash flow reports, trying the alternative field names in order
// per quarter.
func AggregateTTMDepreciation(quarterly []ingest.Report, asof time.Time) (num.Num, string) {
	last4 := PickLastQuarters(quarterly, asof, ttmQuarters)
	if last4 == nil {
		return num.None, ""
	}
	vals := make([]num.Num, len(last4))
	for i, q := range last4 {
		v := num.None
		for _, key := range daKeys {
			if v = toFloat(q, key); v.Valid {
				break
			}
		}
		vals[i] = v
	}
	return num.SumStrict(vals...), last4[len(last4)-1].FiscalDateEnding()
}

// BalanceSnapshot is the cash and total debt position from the single most
// recent quarterly balance report at or before the cutoff. Missing debt
// components are treated as zero, not undefined.
type BalanceSnapshot struct {
	Cash        num.Num
	TotalDebt   num.Num
	QuarterUsed string
}

func TakeBalanceSnapshot(quarterly []ingest.Report, asof time.Time) BalanceSnapshot {
	last := PickLatestReport(quarterly, asof)
	if last == nil {
		return BalanceSnapshot{Cash: num.None, TotalDebt: num.None}
	}
	debtLT := toFloat(last, "longTermDebt").Or(0)
	debtST := toFloat(last, "shortLongTermDebtTotal").Or(0) // ST + current portion
	return BalanceSnapshot{
		Cash:        toFloat(last, "cashAndCashEquivalentsAtCarryingValue"),
		TotalDebt:   num.F(debtLT + debtST),
		QuarterUsed: last.FiscalDateEnding(),
	}
}
