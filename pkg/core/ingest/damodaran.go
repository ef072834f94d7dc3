package ingest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"fundamental_valuation/pkg/core/num"
)

// Damodaran reference file URLs (NYU Stern datasets).
const (
	CtrypremURL = "https://pages.stern.nyu.edu/~adamodar/New_Home_Page/datafile/ctryprem.xlsx"
	HistimplURL = "https://pages.stern.nyu.edu/~adamodar/New_Home_Page/datafile/histimpl.xls"
)

// FallbackERP is used when every download and cache attempt fails.
const FallbackERP = 0.05

// Cached spreadsheets below these sizes are treated as corrupt downloads.
const (
	minCtrypremBytes = 10_000
	minHistimplBytes = 5_000
)

// ERPResult is an equity-risk-premium estimate together with the provenance
// of the source that produced it, for auditability.
type ERPResult struct {
	Value  float64
	Source string
}

// ERPResolver resolves the equity risk premium through an ordered fallback
// chain: fresh ctryprem download, fresh histimpl download, cached ctryprem,
// cached histimpl, fixed constant. The first success wins.
type ERPResolver struct {
	CacheDir    string
	CtrypremURL string
	HistimplURL string

	// Download fetches a URL; swappable in tests.
	Download func(url string) ([]byte, error)

	log *logrus.Logger
}

// NewERPResolver creates a resolver caching into cacheDir.
func NewERPResolver(cacheDir string, log *logrus.Logger) *ERPResolver {
	return &ERPResolver{
		CacheDir:    cacheDir,
		CtrypremURL: CtrypremURL,
		HistimplURL: HistimplURL,
		Download:    httpDownload,
		log:         log,
	}
}

func httpDownload(url string) ([]byte, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func (r *ERPResolver) ctrypremCache() string {
	return filepath.Join(r.CacheDir, "damodaran_ctryprem.xlsx")
}

func (r *ERPResolver) histimplCache() string {
	return filepath.Join(r.CacheDir, "damodaran_histimpl.xls")
}

// Resolve runs the fallback chain and returns the first successful estimate.
func (r *ERPResolver) Resolve() ERPResult {
	type attempt struct {
		name string
		fn   func() (float64, error)
	}
	attempts := []attempt{
		{"Damodaran ctryprem.xlsx (downloaded)", func() (float64, error) {
			return r.downloadAndParse(r.CtrypremURL, r.ctrypremCache(), ParseCtrypremERP)
		}},
		{"Damodaran histimpl.xls (downloaded)", func() (float64, error) {
			return r.downloadAndParse(r.HistimplURL, r.histimplCache(), ParseHistimplERP)
		}},
		{"Damodaran ctryprem.xlsx (cached)", func() (float64, error) {
			return r.parseCached(r.ctrypremCache(), minCtrypremBytes, ParseCtrypremERP)
		}},
		{"Damodaran histimpl.xls (cached)", func() (float64, error) {
			return r.parseCached(r.histimplCache(), minHistimplBytes, ParseHistimplERP)
		}},
	}

	for _, a := range attempts {
		v, err := a.fn()
		if err != nil {
			r.log.WithError(err).Debugf("ERP attempt failed: %s", a.name)
			continue
		}
		r.log.Infof("ERP %.2f%% from %s", v*100, a.name)
		return ERPResult{Value: v, Source: a.name}
	}

	r.log.Warnf("all ERP sources failed, using fallback %.0f%%", FallbackERP*100)
	return ERPResult{Value: FallbackERP, Source: "Fallback default 5% (all external ERP fetch failed)"}
}

func (r *ERPResolver) downloadAndParse(url, cachePath string, parse func(string) (float64, error)) (float64, error) {
	content, err := r.Download(url)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(cachePath, content, 0644); err != nil {
		return 0, err
	}
	return parse(cachePath)
}

func (r *ERPResolver) parseCached(path string, minBytes int64, parse func(string) (float64, error)) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("no cached copy at %s", path)
	}
	if info.Size() <= minBytes {
		return 0, fmt.Errorf("cached copy at %s too small (%d bytes)", path, info.Size())
	}
	return parse(path)
}

// ParseCtrypremERP extracts the mature-market premium from ctryprem.xlsx:
// the column whose header contains both "mature" and "premium"
// (case-insensitive), reduced to the median of its valid rows, in percent.
func ParseCtrypremERP(path string) (float64, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil || len(rows) == 0 {
		return 0, fmt.Errorf("read %s: no rows", path)
	}

	col := -1
	for i, h := range rows[0] {
		low := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(low, "mature") && strings.Contains(low, "premium") {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("cannot find mature market premium column in %s", path)
	}

	var vals []num.Num
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64); err == nil {
			vals = append(vals, num.F(v))
		}
	}
	med := num.Median(vals...)
	if !med.Valid {
		return 0, fmt.Errorf("no numeric premium rows in %s", path)
	}
	return med.Float64 / 100.0, nil
}

// ParseHistimplERP extracts the implied premium from histimpl.xls: the
// column whose header contains "erp", or both "implied" and "premium",
// taking the most recent (last) valid row, in percent.
func ParseHistimplERP(path string) (float64, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return 0, fmt.Errorf("no sheet in %s", path)
	}

	header := sheet.Row(0)
	if header == nil {
		return 0, fmt.Errorf("no header row in %s", path)
	}
	col := -1
	for c := header.FirstCol(); c < header.LastCol(); c++ {
		low := strings.ToLower(strings.TrimSpace(header.Col(c)))
		if strings.Contains(low, "erp") || (strings.Contains(low, "implied") && strings.Contains(low, "premium")) {
			col = c
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("cannot find ERP column in %s", path)
	}

	last := 0.0
	found := false
	for i := 1; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(row.Col(col)), 64); err == nil {
			last = v
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("no numeric ERP rows in %s", path)
	}
	return last / 100.0, nil
}
