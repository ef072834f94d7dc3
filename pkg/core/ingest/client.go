package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Statement API function names.
const (
	FnIncomeStatement = "INCOME_STATEMENT"
	FnBalanceSheet    = "BALANCE_SHEET"
	FnCashFlow        = "CASH_FLOW"
	FnOverview        = "OVERVIEW"
)

// errorMarkers are payload keys the provider uses to signal errors, rate
// limiting, or informational throttling notes. A payload carrying any of
// them is a failed fetch and must never be cached.
var errorMarkers = []string{"Error Message", "Note", "Information"}

// Report is one raw per-period record: named fields to string values.
type Report map[string]string

// FiscalDateEnding returns the period-end date tag of a report.
func (r Report) FiscalDateEnding() string { return r["fiscalDateEnding"] }

// StatementPayload is the decoded body of a statement API response.
type StatementPayload struct {
	Symbol           string   `json:"symbol"`
	AnnualReports    []Report `json:"annualReports"`
	QuarterlyReports []Report `json:"quarterlyReports"`
}

// Client fetches from the Alpha Vantage style statement API, cache-first.
// After any live fetch it pauses for the configured delay to respect the
// provider's request-rate ceiling.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Cache      *JSONCache
	FetchDelay time.Duration

	log *logrus.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewClient creates a statement API client with a file cache at cacheDir.
func NewClient(baseURL, apiKey, cacheDir string, fetchDelay time.Duration, log *logrus.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Cache:      NewJSONCache(cacheDir),
		FetchDelay: fetchDelay,
		log:        log,
		sleep:      time.Sleep,
	}
}

// Get returns the raw JSON payload for (function, symbol), consulting the
// cache first. On a live fetch the payload is validated, cached, and the
// rate-limit delay applied.
func (c *Client) Get(function, symbol string) ([]byte, error) {
	if data := c.Cache.Get(symbol, function); data != nil {
		if err := checkMarkers(data); err == nil {
			c.log.WithFields(logrus.Fields{"symbol": symbol, "function": function}).
				Debug("statement cache hit")
			return data, nil
		}
		// A bad payload slipped into the cache on a previous run; refetch.
	}

	c.log.WithFields(logrus.Fields{"symbol": symbol, "function": function}).
		Info("fetching from statement API")
	data, err := c.fetch(function, symbol)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(symbol, function, data); err != nil {
		c.log.WithError(err).Warn("failed to write statement cache")
	}
	if c.FetchDelay > 0 {
		c.sleep(c.FetchDelay)
	}
	return data, nil
}

func (c *Client) fetch(function, symbol string) ([]byte, error) {
	q := url.Values{}
	q.Set("function", function)
	q.Set("apikey", c.APIKey)
	if symbol != "" {
		q.Set("symbol", symbol)
	}

	resp, err := c.HTTPClient.Get(c.BaseURL + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", function, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s %s: status %d", function, symbol, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", function, symbol, err)
	}
	if err := checkMarkers(body); err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", function, symbol, err)
	}
	return body, nil
}

// checkMarkers rejects payloads carrying a provider error marker field.
func checkMarkers(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	for _, marker := range errorMarkers {
		if raw, ok := probe[marker]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return fmt.Errorf("provider %s: %s", marker, msg)
		}
	}
	return nil
}

// Statements fetches and decodes a statement payload for symbol.
func (c *Client) Statements(function, symbol string) (*StatementPayload, error) {
	data, err := c.Get(function, symbol)
	if err != nil {
		return nil, err
	}
	var payload StatementPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", function, symbol, err)
	}
	return &payload, nil
}

// Overview fetches the per-ticker market snapshot (shares outstanding,
// market capitalization, beta).
func (c *Client) Overview(symbol string) (Report, error) {
	data, err := c.Get(FnOverview, symbol)
	if err != nil {
		return nil, err
	}
	var ov Report
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("decode overview %s: %w", symbol, err)
	}
	return ov, nil
}

// AnnualStatements fetches the three annual statement payloads for symbol.
func (c *Client) AnnualStatements(symbol string) (income, balance, cashflow *StatementPayload, err error) {
	if income, err = c.Statements(FnIncomeStatement, symbol); err != nil {
		return
	}
	if balance, err = c.Statements(FnBalanceSheet, symbol); err != nil {
		return
	}
	cashflow, err = c.Statements(FnCashFlow, symbol)
	return
}
