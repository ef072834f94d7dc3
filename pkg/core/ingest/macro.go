package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRiskFreeURL is the FRED CSV export of the US 10Y Treasury yield.
const DefaultRiskFreeURL = "https://fred.stlouisfed.org/graph/fredgraph.csv?id=DGS10"

// FallbackRiskFree is used when the macro feed is unreachable.
const FallbackRiskFree = 0.04

// MacroClient fetches the risk-free rate time series.
type MacroClient struct {
	URL        string
	HTTPClient *http.Client
	log        *logrus.Logger
}

// NewMacroClient creates a macro data client for the default FRED series.
func NewMacroClient(log *logrus.Logger) *MacroClient {
	return &MacroClient{
		URL:        DefaultRiskFreeURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// RiskFreeRate returns the last reported 10Y Treasury yield as a decimal.
// Any failure degrades to the fixed fallback rate; the pipeline never aborts
// on a macro feed outage.
func (m *MacroClient) RiskFreeRate() float64 {
	resp, err := m.HTTPClient.Get(m.URL)
	if err != nil {
		m.log.WithError(err).Warnf("risk-free fetch failed, using fallback %.2f%%", FallbackRiskFree*100)
		return FallbackRiskFree
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.log.Warnf("risk-free fetch status %d, using fallback", resp.StatusCode)
		return FallbackRiskFree
	}

	rate, err := ParseRiskFreeCSV(resp.Body)
	if err != nil {
		m.log.WithError(err).Warn("risk-free parse failed, using fallback")
		return FallbackRiskFree
	}
	return rate
}

// ParseRiskFreeCSV extracts the last non-missing value of the series column
// and converts percent to decimal. The series column is the second column;
// missing observations are "." or empty.
func ParseRiskFreeCSV(r io.Reader) (float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	last := 0.0
	found := false
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read series CSV: %w", err)
		}
		line++
		if line == 1 || len(rec) < 2 {
			continue // header
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue // "." marks a missing observation
		}
		last = v
		found = true
	}
	if !found {
		return 0, fmt.Errorf("no numeric observations in series")
	}
	return last / 100.0, nil
}
