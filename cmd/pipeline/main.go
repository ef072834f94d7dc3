package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"fundamental_valuation/pkg/core/config"
	"fundamental_valuation/pkg/core/num"
	"fundamental_valuation/pkg/core/pipeline"
)

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
	return log
}

func fmtN(v num.Num) string {
	if !v.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

func printSummary(cfg config.Config, res *pipeline.RunResult) {
	fmt.Println("\n==============================")
	fmt.Printf("%s Fundamental Valuation Run\n", cfg.Symbol)
	fmt.Println("==============================")

	fmt.Println("\nMultiples (TTM):")
	fmt.Println(res.Multiples.Markdown())

	d := res.DCF
	fmt.Println("DCF valuation:")
	fmt.Printf("- WACC: %s\n", fmtN(d.WACC.WACC))
	fmt.Printf("- ERP source: %s\n", d.WACC.ERPSource)
	if d.TerminalValueInvalid {
		fmt.Println("- Terminal value: invalid (discount rate does not exceed terminal growth)")
	} else {
		fmt.Printf("- PV of FCFF: %s\n", fmtN(d.PVFCFF))
		fmt.Printf("- PV of terminal value: %s\n", fmtN(d.PVTerminal))
		fmt.Printf("- Enterprise value: %s\n", fmtN(d.EnterpriseValue))
		fmt.Printf("- Equity value: %s\n", fmtN(d.EquityValue))
		fmt.Printf("- Implied price per share: %s\n", fmtN(d.ImpliedPrice))
	}

	if res.MemoPath != "" {
		fmt.Printf("\nMemo: %s\n", res.MemoPath)
	}
	fmt.Println("\nArtifacts:")
	for _, p := range res.Artifacts {
		fmt.Printf("  - %s\n", p)
	}
}

func main() {
	configPath := flag.String("config", "", "optional YAML config overriding defaults")
	ticker := flag.String("ticker", "", "override the target symbol")
	envPath := flag.String("env", "secrets.env", "env file with ALPHAVANTAGE_API_KEY")
	skipMemo := flag.Bool("skip-memo", false, "skip the LLM memo stage")
	flag.Parse()

	log := newLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *ticker != "" {
		cfg.Symbol = *ticker
	}

	apiKey, err := config.LoadAPIKey(*envPath)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("🚀 Fundamental valuation pipeline starting for %s...\n", cfg.Symbol)

	p := pipeline.New(cfg, apiKey, *skipMemo, log)
	res, err := p.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	printSummary(cfg, res)
	fmt.Println("\n✅ Run complete.")
}
