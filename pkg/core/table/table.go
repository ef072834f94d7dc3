// Package table implements a small label-indexed table: rows are metric
// names, columns are ordered keys (fiscal years or tickers). It replaces a
// dataframe dependency for the handful of tables this pipeline produces.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"fundamental_valuation/pkg/core/num"
)

// Table is a (row label x column key) grid of nullable values with a fixed
// column order. Row order follows insertion.
type Table struct {
	IndexName string
	cols      []string
	rows      []string
	cells     map[string]map[string]num.Num
}

// New creates a table with the given ordered column keys.
func New(indexName string, cols ...string) *Table {
	return &Table{
		IndexName: indexName,
		cols:      append([]string(nil), cols...),
		cells:     make(map[string]map[string]num.Num),
	}
}

// YearCols formats fiscal years as column keys.
func YearCols(years []int) []string {
	cols := make([]string, len(years))
	for i, y := range years {
		cols[i] = fmt.Sprintf("%d", y)
	}
	return cols
}

// Cols returns the ordered column keys.
func (t *Table) Cols() []string { return t.cols }

// Rows returns the row labels in insertion order.
func (t *Table) Rows() []string { return t.rows }

// Set stores a cell, registering the row on first use. Unknown columns are
// appended to the column order.
func (t *Table) Set(row, col string, v num.Num) {
	if _, ok := t.cells[row]; !ok {
		t.cells[row] = make(map[string]num.Num)
		t.rows = append(t.rows, row)
	}
	if !t.hasCol(col) {
		t.cols = append(t.cols, col)
	}
	t.cells[row][col] = v
}

// SetRow stores a full row in column order.
func (t *Table) SetRow(row string, vals ...num.Num) {
	for i, v := range vals {
		if i >= len(t.cols) {
			break
		}
		t.Set(row, t.cols[i], v)
	}
}

// Get returns the cell value; absent cells are undefined.
func (t *Table) Get(row, col string) num.Num {
	if r, ok := t.cells[row]; ok {
		return r[col]
	}
	return num.None
}

// GetYear is Get with an integer column key.
func (t *Table) GetYear(row string, year int) num.Num {
	return t.Get(row, fmt.Sprintf("%d", year))
}

// Row returns the row values in column order.
func (t *Table) Row(row string) []num.Num {
	vals := make([]num.Num, len(t.cols))
	for i, c := range t.cols {
		vals[i] = t.Get(row, c)
	}
	return vals
}

func (t *Table) hasCol(col string) bool {
	for _, c := range t.cols {
		if c == col {
			return true
		}
	}
	return false
}

// WriteCSV persists the table. Undefined cells render as empty fields, so a
// re-run over identical inputs is byte-identical.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{t.IndexName}, t.cols...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range t.rows {
		rec := make([]string, 0, len(t.cols)+1)
		rec = append(rec, row)
		for _, c := range t.cols {
			rec = append(rec, t.Get(row, c).String())
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Markdown renders the table as a GitHub-style markdown table for the memo
// prompt. Values are shown with four significant digits.
func (t *Table) Markdown() string {
	var b strings.Builder
	b.WriteString("| " + t.IndexName)
	for _, c := range t.cols {
		b.WriteString(" | " + c)
	}
	b.WriteString(" |\n|")
	for i := 0; i <= len(t.cols); i++ {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, row := range t.rows {
		b.WriteString("| " + row)
		for _, c := range t.cols {
			v := t.Get(row, c)
			if v.Valid {
				b.WriteString(fmt.Sprintf(" | %.4g", v.Float64))
			} else {
				b.WriteString(" | N/A")
			}
		}
		b.WriteString(" |\n")
	}
	return b.String()
}
