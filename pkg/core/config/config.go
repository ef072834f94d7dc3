// Package config defines the externally overridable parameters of the
// valuation pipeline and loads them from a YAML file plus environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// BenchmarkRow is a literal (P/E, EV/EBITDA, EV/Sales) reference triple
// appended to the multiples table for comparison.
type BenchmarkRow struct {
	Label    string  `yaml:"label"`
	PE       float64 `yaml:"pe"`
	EVEBITDA float64 `yaml:"ev_ebitda"`
	EVSales  float64 `yaml:"ev_sales"`
}

// Config holds every tunable of the pipeline. Nothing in the valuation core
// reads these defaults directly; the orchestrator passes them down.
type Config struct {
	// Core tickers
	Symbol      string   `yaml:"symbol"`
	PeerTickers []string `yaml:"peer_tickers"`

	// Time
	Years            []int  `yaml:"years"`
	BaseYear         int    `yaml:"base_year"`
	StartYearForCAGR int    `yaml:"start_year_for_cagr"`
	Horizon          int    `yaml:"horizon"`
	AsOf             string `yaml:"asof"` // pick last 4 quarters <= AsOf

	// DCF
	TerminalGrowth float64 `yaml:"terminal_growth"`

	// Benchmark multiples
	Benchmarks []BenchmarkRow `yaml:"benchmarks"`

	// Data source
	AlphaVantageBase string        `yaml:"av_base"`
	FetchDelay       time.Duration `yaml:"fetch_delay"`

	// Dirs
	RawDir  string `yaml:"raw_dir"`
	OutDir  string `yaml:"out_dir"`
	FigsDir string `yaml:"figs_dir"`

	// Units
	MonetaryUnit float64 `yaml:"monetary_unit"`

	// LLM / Memo
	MemoProvider string `yaml:"memo_provider"` // "ollama" or "gemini"
	MemoModel    string `yaml:"memo_model"`
	MemoPath     string `yaml:"memo_path"`
	PromptPath   string `yaml:"prompt_path"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Symbol:           "NVDA",
		PeerTickers:      []string{"NVDA", "ADI", "QCOM", "TXN"},
		Years:            []int{2020, 2021, 2022, 2023, 2024, 2025},
		BaseYear:         2025,
		StartYearForCAGR: 2021,
		Horizon:          5,
		AsOf:             "2025-01-31",
		TerminalGrowth:   0.045,
		Benchmarks: []BenchmarkRow{
			{Label: "Semiconductor Avg", PE: 37.29, EVEBITDA: 42.70, EVSales: 15.70},
			{Label: "Market Avg (S&P500)", PE: 27.66, EVEBITDA: 23.95, EVSales: 3.97},
		},
		AlphaVantageBase: "https://www.alphavantage.co/query",
		FetchDelay:       12 * time.Second,
		RawDir:           filepath.Join("data_raw", "alphavantage"),
		OutDir:           "outputs",
		FigsDir:          filepath.Join("outputs", "figures"),
		MonetaryUnit:     1e9,
		MemoProvider:     "ollama",
		MemoModel:        "llama3:latest",
		MemoPath:         filepath.Join("outputs", "investment_memo.md"),
		PromptPath:       filepath.Join("outputs", "investment_memo_prompt.txt"),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// AsOfTime parses the valuation cutoff date.
func (c Config) AsOfTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid asof date %q: %w", c.AsOf, err)
	}
	return t, nil
}

// EnsureDirs creates the raw, output and figure directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.RawDir, c.OutDir, c.FigsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// LoadAPIKey resolves ALPHAVANTAGE_API_KEY from secrets.env or the process
// environment. A missing key is a fatal configuration failure: no statement
// data can be fetched without it.
func LoadAPIKey(envPath string) (string, error) {
	if envPath == "" {
		envPath = "secrets.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}
	key := strings.TrimSpace(os.Getenv("ALPHAVANTAGE_API_KEY"))
	if key == "" {
		return "", fmt.Errorf("missing ALPHAVANTAGE_API_KEY (set env var or create %s)", envPath)
	}
	return key, nil
}
