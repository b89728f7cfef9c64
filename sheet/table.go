// Package sheet holds the tabular model the dashboard works on: a header row
// plus string cells, read from .xlsx workbooks and written out as CSV.
package sheet

import (
	"encoding/csv"
	"io"
	"sort"
)

// Table is a header plus rows of string cells. Every row has exactly
// len(Columns) cells. Operations never modify the receiver; they return a
// new Table, so a Table held by a Cache can be shared freely.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New builds a table, padding or truncating rows to the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(columns)))
	}
	return t
}

func fit(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the table has a column named col.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Value returns the cell of row under col, or "" if the column is absent.
func (t *Table) Value(row []string, col string) string {
	i := t.Index(col)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Column returns a copy of every cell under col, nil if absent.
func (t *Table) Column(col string) []string {
	i := t.Index(col)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Unique returns the sorted distinct non-empty values under col.
func (t *Table) Unique(col string) []string {
	seen := make(map[string]bool)
	for _, v := range t.Column(col) {
		if v != "" {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Rename returns a table with column from renamed to to. A missing from
// column is not an error.
func (t *Table) Rename(from, to string) *Table {
	cols := append([]string(nil), t.Columns...)
	if i := t.Index(from); i >= 0 {
		cols[i] = to
	}
	return &Table{Columns: cols, Rows: t.Rows}
}

// Select projects onto the named columns that exist, in the given order.
// Names without a matching column are skipped.
func (t *Table) Select(cols ...string) *Table {
	var idx []int
	var names []string
	for _, c := range cols {
		if i := t.Index(c); i >= 0 {
			idx = append(idx, i)
			names = append(names, c)
		}
	}
	return t.project(names, idx)
}

// Drop removes the named columns, ignoring ones that do not exist.
func (t *Table) Drop(cols ...string) *Table {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	var idx []int
	var names []string
	for i, c := range t.Columns {
		if !drop[c] {
			idx = append(idx, i)
			names = append(names, c)
		}
	}
	return t.project(names, idx)
}

func (t *Table) project(names []string, idx []int) *Table {
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(idx))
		for j, i := range idx {
			out[j] = row[i]
		}
		rows[r] = out
	}
	return &Table{Columns: names, Rows: rows}
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	var rows [][]string
	for _, row := range t.Rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// MapColumn rewrites every cell under col with fn. Returns t unchanged if the
// column is absent.
func (t *Table) MapColumn(col string, fn func(string) string) *Table {
	i := t.Index(col)
	if i < 0 {
		return t
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := append([]string(nil), row...)
		out[i] = fn(out[i])
		rows[r] = out
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// WriteCSV writes the header and rows as UTF-8 CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
