package ingest

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeCtrypremFixture builds a minimal ctryprem-style workbook with a
// mature-market premium column, padded so it clears the cached-size floor.
func writeCtrypremFixture(t *testing.T, path string, premiums []float64) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Country")
	f.SetCellValue(sheet, "B1", "Total Equity Risk Premium")
	f.SetCellValue(sheet, "C1", "Mature Market Premium")
	for i, p := range premiums {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("Country %d", i))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p+1)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p)
	}
	// Filler rows so the saved file exceeds minCtrypremBytes.
	for i := 0; i < 600; i++ {
		f.SetCellValue(sheet, fmt.Sprintf("E%d", i+1), fmt.Sprintf("padding-padding-padding-%06d", i))
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestParseCtrypremERP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctryprem.xlsx")
	writeCtrypremFixture(t, path, []float64{4.0, 4.6, 5.2})

	got, err := ParseCtrypremERP(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// Median of the column, percent to decimal.
	if math.Abs(got-0.046) > 1e-12 {
		t.Errorf("expected 0.046, got %f", got)
	}
}

func TestResolvePrefersCachedWhenDownloadsFail(t *testing.T) {
	dir := t.TempDir()
	r := NewERPResolver(dir, testLogger())
	r.Download = func(url string) ([]byte, error) {
		return nil, fmt.Errorf("network unreachable")
	}
	writeCtrypremFixture(t, r.ctrypremCache(), []float64{4.2, 4.8, 5.0})

	res := r.Resolve()
	if math.Abs(res.Value-0.048) > 1e-12 {
		t.Errorf("expected cached median 0.048, got %f", res.Value)
	}
	if res.Source != "Damodaran ctryprem.xlsx (cached)" {
		t.Errorf("expected cached provenance, got %q", res.Source)
	}
}

func TestResolveFallsBackToConstant(t *testing.T) {
	r := NewERPResolver(t.TempDir(), testLogger())
	r.Download = func(url string) ([]byte, error) {
		return nil, fmt.Errorf("network unreachable")
	}

	res := r.Resolve()
	if res.Value != FallbackERP {
		t.Errorf("expected fallback %f, got %f", FallbackERP, res.Value)
	}
	if res.Source != "Fallback default 5% (all external ERP fetch failed)" {
		t.Errorf("unexpected provenance %q", res.Source)
	}
}

func TestResolveDownloadWins(t *testing.T) {
	dir := t.TempDir()
	// Build the bytes by writing a fixture then reading it back.
	fixture := filepath.Join(dir, "fixture.xlsx")
	writeCtrypremFixture(t, fixture, []float64{5.5})

	r := NewERPResolver(filepath.Join(dir, "cache"), testLogger())
	r.Download = func(url string) ([]byte, error) {
		if url != r.CtrypremURL {
			return nil, fmt.Errorf("unexpected url %s", url)
		}
		return readFile(t, fixture), nil
	}

	res := r.Resolve()
	if math.Abs(res.Value-0.055) > 1e-12 {
		t.Errorf("expected 0.055, got %f", res.Value)
	}
	if res.Source != "Damodaran ctryprem.xlsx (downloaded)" {
		t.Errorf("expected downloaded provenance, got %q", res.Source)
	}
	// Successful downloads persist to the cache for later runs.
	if _, err := ParseCtrypremERP(r.ctrypremCache()); err != nil {
		t.Errorf("download was not cached: %v", err)
	}
}
