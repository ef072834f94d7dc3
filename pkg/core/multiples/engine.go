package multiples

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fundamental_valuation/pkg/core/config"
	"fundamental_valuation/pkg/core/ingest"
	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/table"
)

// Input table row labels, in fixed display order.
const (
	RowImpliedPrice = "ImpliedPrice (USD/share)"
	RowNetIncome    = "NetIncome_TTM (USD bn)"
	RowShares       = "SharesOutstanding (bn shares)"
	RowMarketCap    = "MarketCap (USD bn)"
	RowTotalDebt    = "TotalDebt (USD bn)"
	RowCash         = "Cash (USD bn)"
	RowEBITDA       = "EBITDA_TTM (USD bn)"
	RowRevenue      = "Revenue_TTM (USD bn)"
)

// Multiples table column labels.
const (
	ColPE       = "P/E (TTM)"
	ColEVEBITDA = "EV/EBITDA (TTM)"
	ColEVSales  = "EV/Sales (TTM)"
)

// PeerRow is one ticker's TTM financial snapshot as of the cutoff date,
// rescaled to the configured monetary unit.
type PeerRow struct {
	Ticker            string
	ImpliedPrice      num.Num
	NetIncomeTTM      num.Num
	SharesOutstanding num.Num
	MarketCap         num.Num
	TotalDebt         num.Num
	Cash              num.Num
	EBITDATTM         num.Num
	RevenueTTM        num.Num

	// Audit trail: which period-end dates fed the aggregates.
	IncomeQuarterUsed   string
	CashflowQuarterUsed string
	BalanceQuarterUsed  string
}

// Engine fetches per-ticker quarterly reports and market snapshots and
// assembles the peer multiples tables.
type Engine struct {
	Client *ingest.Client
	Unit   float64
	log    *logrus.Logger
}

// NewEngine creates a multiples engine over the shared statement client.
func NewEngine(client *ingest.Client, unit float64, log *logrus.Logger) *Engine {
	return &Engine{Client: client, Unit: unit, log: log}
}

// PeerRowFor builds the TTM snapshot for one ticker.
func (e *Engine) PeerRowFor(symbol string, asof time.Time) (PeerRow, error) {
	inc, err := e.Client.Statements(ingest.FnIncomeStatement, symbol)
	if err != nil {
		return PeerRow{}, fmt.Errorf("peer %s: %w", symbol, err)
	}
	cf, err := e.Client.Statements(ingest.FnCashFlow, symbol)
	if err != nil {
		return PeerRow{}, fmt.Errorf("peer %s: %w", symbol, err)
	}
	bs, err := e.Client.Statements(ingest.FnBalanceSheet, symbol)
	if err != nil {
		return PeerRow{}, fmt.Errorf("peer %s: %w", symbol, err)
	}
	ov, err := e.Client.Overview(symbol)
	if err != nil {
		return PeerRow{}, fmt.Errorf("peer %s: %w", symbol, err)
	}

	row := AssemblePeerRow(symbol, inc.QuarterlyReports, cf.QuarterlyReports, bs.QuarterlyReports, ov, asof, e.Unit)
	if !row.RevenueTTM.Valid {
		e.log.Warnf("peer %s: fewer than %d qualifying quarters before %s, TTM figures undefined",
			symbol, ttmQuarters, asof.Format("2006-01-02"))
	}
	return row, nil
}

// AssemblePeerRow computes a peer row from raw quarterly report sets and a
// market overview snapshot. Pure; used directly by tests.
func AssemblePeerRow(symbol string, incomeQ, cashflowQ, balanceQ []ingest.Report,
	overview ingest.Report, asof time.Time, unit float64) PeerRow {

	inc := AggregateTTMIncome(incomeQ, asof)
	da, cfQuarter := AggregateTTMDepreciation(cashflowQ, asof)
	snap := TakeBalanceSnapshot(balanceQ, asof)

	ebitda := inc.EBIT.Add(da)

	marketCap := toFloat(overview, "MarketCapitalization")
	shares := toFloat(overview, "SharesOutstanding")

	return PeerRow{
		Ticker:              symbol,
		ImpliedPrice:        marketCap.Div(shares),
		NetIncomeTTM:        inc.NetIncome.Scale(unit),
		SharesOutstanding:   shares.Scale(unit),
		MarketCap:           marketCap.Scale(unit),
		TotalDebt:           snap.TotalDebt.Scale(unit),
		Cash:                snap.Cash.Scale(unit),
		EBITDATTM:           ebitda.Scale(unit),
		RevenueTTM:          inc.Revenue.Scale(unit),
		IncomeQuarterUsed:   inc.LastQuarter,
		CashflowQuarterUsed: cfQuarter,
		BalanceQuarterUsed:  snap.QuarterUsed,
	}
}

// BuildInputTable arranges peer rows into the metric-by-ticker input table.
func BuildInputTable(peers []PeerRow) *table.Table {
	cols := make([]string, len(peers))
	for i, p := range peers {
		cols[i] = p.Ticker
	}
	t := table.New("metric", cols...)
	for _, p := range peers {
		t.Set(RowImpliedPrice, p.Ticker, p.ImpliedPrice)
		t.Set(RowNetIncome, p.Ticker, p.NetIncomeTTM)
		t.Set(RowShares, p.Ticker, p.SharesOutstanding)
		t.Set(RowMarketCap, p.Ticker, p.MarketCap)
		t.Set(RowTotalDebt, p.Ticker, p.TotalDebt)
		t.Set(RowCash, p.Ticker, p.Cash)
		t.Set(RowEBITDA, p.Ticker, p.EBITDATTM)
		t.Set(RowRevenue, p.Ticker, p.RevenueTTM)
	}
	return t
}

// ComputeMultiples derives the ticker-by-multiple table from peer rows.
// Enterprise value = market cap + total debt - cash. Zero denominators
// leave the multiple undefined rather than infinite.
func ComputeMultiples(peers []PeerRow) *table.Table {
	t := table.New("Ticker", ColPE, ColEVEBITDA, ColEVSales)
	for _, p := range peers {
		ev := p.MarketCap.Add(p.TotalDebt).Sub(p.Cash)
		t.Set(p.Ticker, ColPE, p.MarketCap.Div(p.NetIncomeTTM))
		t.Set(p.Ticker, ColEVEBITDA, ev.Div(p.EBITDATTM))
		t.Set(p.Ticker, ColEVSales, ev.Div(p.RevenueTTM))
	}
	return t
}

// AddBenchmarks appends the configured literal reference rows.
func AddBenchmarks(t *table.Table, benchmarks []config.BenchmarkRow) {
	for _, b := range benchmarks {
		t.Set(b.Label, ColPE, num.F(b.PE))
		t.Set(b.Label, ColEVEBITDA, num.F(b.EVEBITDA))
		t.Set(b.Label, ColEVSales, num.F(b.EVSales))
	}
}
