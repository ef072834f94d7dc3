// Package charts renders the ratio trend panels and the peer multiples
// figures as PNG artifacts. Each multi-panel figure is assembled by
// rendering the individual sub-charts and compositing them onto a grid.
package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"

	"fundamental_valuation/pkg/core/multiples"
	"fundamental_valuation/pkg/core/ratios"
	"fundamental_valuation/pkg/core/table"
)

const (
	subChartWidth  = 480
	subChartHeight = 320
	figureWidth    = 960
	figureHeight   = 600
)

// Renderer writes figure files under FigsDir. Symbol and AsOf appear in
// chart titles only.
type Renderer struct {
	FigsDir string
	Symbol  string
	AsOf    string
	Log     *logrus.Logger
}

type panelSpec struct {
	row     string // row label in the ratio table
	title   string
	percent bool
}

// RatioPanels renders the four ratio trend figures and returns the paths
// written. A ratio with fewer than two defined years leaves its grid cell
// blank rather than failing the figure.
func (r *Renderer) RatioPanels(res *ratios.Result) ([]string, error) {
	fyRange := yearRange(res.Profitability.Cols())

	figures := []struct {
		name   string
		source *table.Table
		cols   int
		panels []panelSpec
	}{
		{
			name:   "ratios_profitability.png",
			source: res.Profitability,
			cols:   3,
			panels: []panelSpec{
				{ratios.GrossMargin, fmt.Sprintf("%s Gross Margin %s", r.Symbol, fyRange), true},
				{ratios.OperatingMargin, fmt.Sprintf("%s Operating Margin %s", r.Symbol, fyRange), true},
				{ratios.NetMargin, fmt.Sprintf("%s Net Margin %s", r.Symbol, fyRange), true},
				{ratios.ROA, fmt.Sprintf("%s ROA %s", r.Symbol, fyRange), true},
				{ratios.ROE, fmt.Sprintf("%s ROE %s", r.Symbol, fyRange), true},
			},
		},
		{
			name:   "ratios_leverage_liquidity.png",
			source: res.Leverage,
			cols:   2,
			panels: []panelSpec{
				{ratios.DebtToEquity, r.Symbol + " Debt-to-Equity", false},
				{ratios.CurrentRatio, r.Symbol + " Current Ratio", false},
				{ratios.InterestCoverage, r.Symbol + " Interest Coverage", false},
			},
		},
		{
			name:   "ratios_growth.png",
			source: res.Growth,
			cols:   2,
			panels: []panelSpec{
				{ratios.RevenueYoY, r.Symbol + " Revenue YoY Growth", true},
				{ratios.NetIncomeYoY, r.Symbol + " Net Income YoY Growth", true},
				{ratios.FCFYoY, r.Symbol + " FCF YoY Growth", true},
			},
		},
		{
			name:   "ratios_efficiency.png",
			source: res.Efficiency,
			cols:   2,
			panels: []panelSpec{
				{ratios.AssetTurnover, r.Symbol + " Asset Turnover", false},
				{ratios.FCFMargin, r.Symbol + " FCF Margin", true},
				{ratios.CFOToNetIncome, r.Symbol + " CFO / Net Income", false},
			},
		},
	}

	var paths []string
	for _, fig := range figures {
		cells := make([]image.Image, len(fig.panels))
		for i, p := range fig.panels {
			img, err := r.lineChart(fig.source, p)
			if err != nil {
				return nil, fmt.Errorf("figure %s, panel %q: %w", fig.name, p.row, err)
			}
			cells[i] = img
		}
		path := filepath.Join(r.FigsDir, fig.name)
		if err := writeGrid(path, cells, fig.cols); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// lineChart renders one ratio trend sub-chart, or nil when the row has too
// few defined points to draw a line.
func (r *Renderer) lineChart(t *table.Table, p panelSpec) (image.Image, error) {
	xs, ys := seriesFromRow(t, p.row)
	if len(xs) < 2 {
		if r.Log != nil {
			r.Log.WithField("metric", p.row).Warn("fewer than two defined years, skipping panel")
		}
		return nil, nil
	}

	c := chart.Chart{
		Title:  p.title,
		Width:  subChartWidth,
		Height: subChartHeight,
		XAxis:  chart.XAxis{ValueFormatter: yearFormatter},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
	if p.percent {
		c.YAxis = chart.YAxis{ValueFormatter: percentFormatter}
	}
	return renderPNG(c.Render)
}

// MultiplesFigures renders the three peer-comparison figures: EV/EBITDA bars
// sorted ascending, EV/Sales bars in the given display order, and the
// annotated EV/EBITDA vs EV/Sales scatter. Entities with undefined values
// are left out of the affected figure.
func (r *Renderer) MultiplesFigures(t *table.Table, evSalesOrder []string) ([]string, error) {
	var paths []string

	bars := barsFromColumn(t, multiples.ColEVEBITDA, t.Rows())
	sort.Slice(bars, func(i, j int) bool { return bars[i].Value < bars[j].Value })
	path, err := r.barFigure("multiples_ev_ebitda_bar.png", multiples.ColEVEBITDA, bars)
	if err != nil {
		return nil, err
	}
	if path != "" {
		paths = append(paths, path)
	}

	bars = barsFromColumn(t, multiples.ColEVSales, evSalesOrder)
	path, err = r.barFigure("multiples_ev_sales_bar.png", multiples.ColEVSales, bars)
	if err != nil {
		return nil, err
	}
	if path != "" {
		paths = append(paths, path)
	}

	path, err = r.scatterFigure(t)
	if err != nil {
		return nil, err
	}
	if path != "" {
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Renderer) barFigure(name, metric string, bars []chart.Value) (string, error) {
	if len(bars) == 0 {
		if r.Log != nil {
			r.Log.WithField("metric", metric).Warn("no defined values, skipping bar chart")
		}
		return "", nil
	}
	c := chart.BarChart{
		Title:    fmt.Sprintf("%s — as of %s", metric, r.AsOf),
		Width:    figureWidth,
		Height:   figureHeight,
		BarWidth: 60,
		YAxis:    chart.YAxis{ValueFormatter: multipleFormatter},
		Bars:     bars,
	}
	path := filepath.Join(r.FigsDir, name)
	img, err := renderPNG(c.Render)
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", name, err)
	}
	return path, writePNG(path, img)
}

func (r *Renderer) scatterFigure(t *table.Table) (string, error) {
	var xs, ys []float64
	var labels []chart.Value2
	for _, entity := range t.Rows() {
		x := t.Get(entity, multiples.ColEVSales)
		y := t.Get(entity, multiples.ColEVEBITDA)
		if !x.Valid || !y.Valid {
			continue
		}
		xs = append(xs, x.Float64)
		ys = append(ys, y.Float64)
		labels = append(labels, chart.Value2{XValue: x.Float64, YValue: y.Float64, Label: entity})
	}
	if len(xs) < 2 {
		if r.Log != nil {
			r.Log.Warn("fewer than two entities with both multiples defined, skipping scatter")
		}
		return "", nil
	}

	c := chart.Chart{
		Title:  fmt.Sprintf("EV/EBITDA vs EV/Sales (TTM) — as of %s", r.AsOf),
		Width:  figureWidth,
		Height: figureHeight,
		XAxis:  chart.XAxis{Name: "EV/Sales (x)"},
		YAxis:  chart.YAxis{Name: "EV/EBITDA (x)"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
				},
			},
			chart.AnnotationSeries{Annotations: labels},
		},
	}
	path := filepath.Join(r.FigsDir, "multiples_scatter_ev_ebitda_vs_ev_sales.png")
	img, err := renderPNG(c.Render)
	if err != nil {
		return "", fmt.Errorf("scatter figure: %w", err)
	}
	return path, writePNG(path, img)
}

// seriesFromRow extracts (year, value) pairs from a ratio table row,
// skipping undefined cells and non-year columns.
func seriesFromRow(t *table.Table, row string) (xs, ys []float64) {
	for _, c := range t.Cols() {
		v := t.Get(row, c)
		if !v.Valid {
			continue
		}
		year, err := strconv.Atoi(c)
		if err != nil {
			continue
		}
		xs = append(xs, float64(year))
		ys = append(ys, v.Float64)
	}
	return xs, ys
}

// barsFromColumn reads one multiples column in the given entity order,
// skipping entities whose value is undefined.
func barsFromColumn(t *table.Table, metric string, order []string) []chart.Value {
	var bars []chart.Value
	for _, entity := range order {
		v := t.Get(entity, metric)
		if !v.Valid {
			continue
		}
		bars = append(bars, chart.Value{Label: entity, Value: v.Float64})
	}
	return bars
}

func yearRange(cols []string) string {
	var years []int
	for _, c := range cols {
		if y, err := strconv.Atoi(c); err == nil {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return ""
	}
	sort.Ints(years)
	return fmt.Sprintf("(FY%d–FY%d)", years[0], years[len(years)-1])
}

func yearFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f + 0.5))
	}
	return ""
}

func percentFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f%%", f*100)
	}
	return ""
}

func multipleFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.1fx", f)
	}
	return ""
}

func renderPNG(render func(chart.RendererProvider, io.Writer) error) (image.Image, error) {
	var buf bytes.Buffer
	if err := render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

// writeGrid composites sub-chart images onto a white grid and writes the
// figure. Nil cells stay blank.
func writeGrid(path string, cells []image.Image, cols int) error {
	rows := (len(cells) + cols - 1) / cols
	dst := image.NewRGBA(image.Rect(0, 0, cols*subChartWidth, rows*subChartHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, cell := range cells {
		if cell == nil {
			continue
		}
		x := (i % cols) * subChartWidth
		y := (i / cols) * subChartHeight
		rect := image.Rect(x, y, x+subChartWidth, y+subChartHeight)
		draw.Draw(dst, rect, cell, cell.Bounds().Min, draw.Src)
	}
	return writePNG(path, dst)
}
