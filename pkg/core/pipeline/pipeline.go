// Package pipeline wires ingestion, standardization, the ratio and
// multiples engines, the DCF, chart rendering and memo generation into one
// batch run. Failures in decorative stages (peers, charts, memo) degrade
// with a warning; failures that leave nothing to value abort the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fundamental_valuation/pkg/core/charts"
	"fundamental_valuation/pkg/core/config"
	"fundamental_valuation/pkg/core/ingest"
	"fundamental_valuation/pkg/core/memo"
	"fundamental_valuation/pkg/core/multiples"
	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/ratios"
	"fundamental_valuation/pkg/core/statements"
	"fundamental_valuation/pkg/core/table"
	"fundamental_valuation/pkg/core/valuation"
)

// Pipeline holds the wired stages of one valuation batch.
type Pipeline struct {
	Cfg       config.Config
	Client    *ingest.Client
	Macro     *ingest.MacroClient
	ERP       *ingest.ERPResolver
	Multiples *multiples.Engine
	Charts    *charts.Renderer
	Provider  memo.Provider // nil skips the memo stage
	Log       *logrus.Logger
}

// New wires a pipeline from the configuration. The memo provider is chosen
// by cfg.MemoProvider; pass skipMemo to disable the stage entirely.
func New(cfg config.Config, apiKey string, skipMemo bool, log *logrus.Logger) *Pipeline {
	client := ingest.NewClient(cfg.AlphaVantageBase, apiKey, cfg.RawDir, cfg.FetchDelay, log)

	var provider memo.Provider
	if !skipMemo {
		switch cfg.MemoProvider {
		case "gemini":
			provider = &memo.GeminiProvider{Model: cfg.MemoModel}
		default:
			provider = &memo.OllamaProvider{Model: cfg.MemoModel}
		}
	}

	return &Pipeline{
		Cfg:       cfg,
		Client:    client,
		Macro:     ingest.NewMacroClient(log),
		ERP:       ingest.NewERPResolver(cfg.RawDir, log),
		Multiples: multiples.NewEngine(client, cfg.MonetaryUnit, log),
		Charts:    &charts.Renderer{FigsDir: cfg.FigsDir, Symbol: cfg.Symbol, AsOf: cfg.AsOf, Log: log},
		Provider:  provider,
		Log:       log,
	}
}

// RunResult carries everything the CLI prints plus the artifact inventory.
type RunResult struct {
	RunID     string
	Ratios    *ratios.Result
	Multiples *table.Table
	DCF       *valuation.DCFResult
	MemoPath  string
	MemoOK    bool
	Artifacts []string
}

// Run executes the full batch.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	if err := p.Cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	asof, err := p.Cfg.AsOfTime()
	if err != nil {
		return nil, err
	}

	res := &RunResult{RunID: uuid.NewString()}
	log := p.Log.WithField("run_id", res.RunID)
	log.WithField("symbol", p.Cfg.Symbol).Info("starting valuation run")

	// Annual statements for the target. Nothing downstream works without
	// them, so any failure here aborts.
	income, balance, cashflow, err := p.Client.AnnualStatements(p.Cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch statements for %s: %w", p.Cfg.Symbol, err)
	}
	tables, err := statements.Build(income, balance, cashflow, p.Cfg.Years, p.Cfg.MonetaryUnit)
	if err != nil {
		return nil, fmt.Errorf("standardize statements for %s: %w", p.Cfg.Symbol, err)
	}
	isView := statements.IncomeView(tables.Income)
	bsView := statements.BalanceView(tables.Balance)
	cfView := statements.CashflowView(tables.Cashflow)

	res.Ratios = ratios.Compute(tables.Merged)
	log.Info("ratio tables computed")

	// Peer multiples. A failing peer is dropped, not fatal.
	var peers []multiples.PeerRow
	for _, ticker := range p.Cfg.PeerTickers {
		row, err := p.Multiples.PeerRowFor(ticker, asof)
		if err != nil {
			log.WithError(err).WithField("peer", ticker).Warn("dropping peer from multiples table")
			continue
		}
		peers = append(peers, row)
	}
	inputTable := multiples.BuildInputTable(peers)
	res.Multiples = multiples.ComputeMultiples(peers)
	multiples.AddBenchmarks(res.Multiples, p.Cfg.Benchmarks)
	log.WithField("peers", len(peers)).Info("multiples table computed")

	// Market inputs for the discount rate.
	market := valuation.MarketInputs{
		RiskFreeRate: p.Macro.RiskFreeRate(),
	}
	erp := p.ERP.Resolve()
	market.ERP = erp.Value
	market.ERPSource = erp.Source
	if ov, err := p.Client.Overview(p.Cfg.Symbol); err != nil {
		log.WithError(err).Warn("overview unavailable, beta and market cap undefined")
	} else {
		market.Beta = overviewField(ov, "Beta")
		market.MarketCapEquity = overviewField(ov, "MarketCapitalization").Scale(p.Cfg.MonetaryUnit)
		market.SharesOutstanding = overviewField(ov, "SharesOutstanding").Scale(p.Cfg.MonetaryUnit)
	}

	res.DCF, err = valuation.RunDCF(p.Cfg.BaseYear, p.Cfg.StartYearForCAGR, p.Cfg.Horizon,
		p.Cfg.TerminalGrowth, isView, bsView, cfView, market)
	if err != nil {
		return nil, fmt.Errorf("dcf: %w", err)
	}
	if res.DCF.TerminalValueInvalid {
		log.Warn("terminal value invalid: discount rate does not exceed terminal growth")
	}

	// Artifacts.
	csvs := []struct {
		name string
		t    *table.Table
	}{
		{"income_view.csv", isView},
		{"balance_view.csv", bsView},
		{"cashflow_view.csv", cfView},
		{"ratios_profitability.csv", res.Ratios.Profitability},
		{"ratios_leverage_liquidity.csv", res.Ratios.Leverage},
		{"ratios_growth.csv", res.Ratios.Growth},
		{"ratios_efficiency.csv", res.Ratios.Efficiency},
		{"multiples_inputs.csv", inputTable},
		{"multiples_ttm.csv", res.Multiples},
		{"dcf_fcff_table.csv", res.DCF.FCFFTable()},
	}
	for _, c := range csvs {
		path := filepath.Join(p.Cfg.OutDir, c.name)
		if err := c.t.WriteCSV(path); err != nil {
			return nil, err
		}
		res.Artifacts = append(res.Artifacts, path)
	}

	if paths, err := p.Charts.RatioPanels(res.Ratios); err != nil {
		log.WithError(err).Warn("ratio figures failed, continuing without them")
	} else {
		res.Artifacts = append(res.Artifacts, paths...)
	}
	if paths, err := p.Charts.MultiplesFigures(res.Multiples, p.displayOrder()); err != nil {
		log.WithError(err).Warn("multiples figures failed, continuing without them")
	} else {
		res.Artifacts = append(res.Artifacts, paths...)
	}

	if p.Provider != nil {
		gen := &memo.Generator{
			Provider:   p.Provider,
			PromptPath: p.Cfg.PromptPath,
			MemoPath:   p.Cfg.MemoPath,
			Log:        p.Log,
		}
		prompt := memo.BuildPrompt(p.Cfg.Symbol, res.Ratios, res.Multiples, res.DCF)
		path, ok, err := gen.Generate(ctx, prompt)
		if err != nil {
			log.WithError(err).Warn("memo stage failed, continuing without a memo")
		} else {
			res.MemoPath = path
			res.MemoOK = ok
			res.Artifacts = append(res.Artifacts, p.Cfg.PromptPath, path)
			if ok {
				res.Artifacts = append(res.Artifacts, gen.HTMLPath())
			}
		}
	}

	if err := p.writeManifest(res, erp, market.RiskFreeRate); err != nil {
		return nil, err
	}
	log.WithField("artifacts", len(res.Artifacts)).Info("valuation run complete")
	return res, nil
}

func (p *Pipeline) displayOrder() []string {
	order := append([]string(nil), p.Cfg.PeerTickers...)
	for _, b := range p.Cfg.Benchmarks {
		order = append(order, b.Label)
	}
	return order
}

// overviewField parses a numeric field from the OVERVIEW payload. Absent,
// "None" or unparseable values are undefined.
func overviewField(ov ingest.Report, key string) num.Num {
	raw := strings.TrimSpace(ov[key])
	if raw == "" || raw == "None" {
		return num.None
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return num.None
	}
	return num.F(f)
}

type manifest struct {
	RunID        string   `json:"run_id"`
	GeneratedAt  string   `json:"generated_at"`
	Symbol       string   `json:"symbol"`
	PeerTickers  []string `json:"peer_tickers"`
	BaseYear     int      `json:"base_year"`
	AsOf         string   `json:"asof"`
	RiskFreeRate float64  `json:"risk_free_rate"`
	ERP          float64  `json:"erp"`
	ERPSource    string   `json:"erp_source"`
	MemoProvider string   `json:"memo_provider,omitempty"`
	Artifacts    []string `json:"artifacts"`
}

func (p *Pipeline) writeManifest(res *RunResult, erp ingest.ERPResult, riskFree float64) error {
	m := manifest{
		RunID:        res.RunID,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Symbol:       p.Cfg.Symbol,
		PeerTickers:  p.Cfg.PeerTickers,
		BaseYear:     p.Cfg.BaseYear,
		AsOf:         p.Cfg.AsOf,
		RiskFreeRate: riskFree,
		ERP:          erp.Value,
		ERPSource:    erp.Source,
		Artifacts:    res.Artifacts,
	}
	if p.Provider != nil {
		m.MemoProvider = p.Provider.Name()
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(p.Cfg.OutDir, "run_manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	res.Artifacts = append(res.Artifacts, path)
	return nil
}
