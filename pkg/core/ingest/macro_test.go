package ingest

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRiskFreeCSV(t *testing.T) {
	csv := "DATE,DGS10\n2025-01-28,4.55\n2025-01-29,.\n2025-01-30,4.52\n"
	rate, err := ParseRiskFreeCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// Last non-missing observation, percent to decimal.
	if math.Abs(rate-0.0452) > 1e-12 {
		t.Errorf("expected 0.0452, got %f", rate)
	}
}

func TestParseRiskFreeCSVAllMissing(t *testing.T) {
	csv := "DATE,DGS10\n2025-01-29,.\n"
	if _, err := ParseRiskFreeCSV(strings.NewReader(csv)); err == nil {
		t.Error("expected error when series has no numeric observations")
	}
}

func TestRiskFreeRateFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMacroClient(testLogger())
	m.URL = srv.URL
	if rate := m.RiskFreeRate(); rate != FallbackRiskFree {
		t.Errorf("expected fallback %f, got %f", FallbackRiskFree, rate)
	}
}

func TestRiskFreeRateLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("DATE,DGS10\n2025-01-30,4.25\n"))
	}))
	defer srv.Close()

	m := NewMacroClient(testLogger())
	m.URL = srv.URL
	if rate := m.RiskFreeRate(); math.Abs(rate-0.0425) > 1e-12 {
		t.Errorf("expected 0.0425, got %f", rate)
	}
}
