/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: table.go
Description: In-memory tabular dataset of string cells. Every column holds categorical
labels (or raw text before discretization); tables are treated as immutable snapshots and
every transformation returns a new table.
*/

package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownColumn is returned when a column name is not present in a table
var ErrUnknownColumn = errors.New("dataset: unknown column")

// Table is a rectangular dataset with named columns
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable validates the header and row widths and takes a private copy of the rows
func NewTable(columns []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c)
		}
		index[c] = i
	}
	owned := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("dataset: row %d has %d cells, header has %d", i, len(row), len(columns))
		}
		owned[i] = append([]string(nil), row...)
	}
	return &Table{columns: append([]string(nil), columns...), index: index, rows: owned}, nil
}

// Columns returns the header
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether name is a column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return i, nil
}

// Column returns a copy of a column's cells
func (t *Table) Column(name string) ([]string, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Cell returns the value at row r of column index c
func (t *Table) Cell(r, c int) string { return t.rows[r][c] }

// WithColumn returns a table with name added (or replaced) by values
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("dataset: column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	columns := t.Columns()
	pos, exists := t.index[name]
	if !exists {
		pos = len(columns)
		columns = append(columns, name)
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		next := make([]string, len(columns))
		copy(next, row)
		next[pos] = values[r]
		rows[r] = next
	}
	return NewTable(columns, rows)
}

// Select projects the table onto the named columns, renaming each source column to its
// key in rename when present
func (t *Table) Select(names []string, rename map[string]string) (*Table, error) {
	idx := make([]int, len(names))
	header := make([]string, len(names))
	for i, name := range names {
		pos, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		idx[i] = pos
		header[i] = name
		if to, ok := rename[name]; ok && to != "" {
			header[i] = to
		}
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		next := make([]string, len(idx))
		for i, pos := range idx {
			next[i] = row[pos]
		}
		rows[r] = next
	}
	return NewTable(header, rows)
}

// IsMissing reports whether a raw cell counts as a missing value
func IsMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "null", "none", "n/a":
		return true
	}
	return false
}

// FillMissing replaces missing cells with label and reports how many were filled
func FillMissing(values []string, label string) ([]string, int) {
	out := make([]string, len(values))
	filled := 0
	for i, v := range values {
		if IsMissing(v) {
			out[i] = label
			filled++
			continue
		}
		out[i] = strings.TrimSpace(v)
	}
	return out, filled
}

// Domain returns the distinct non-missing labels of a column, sorted numerically when
// every label is a number and lexically otherwise
func Domain(values []string) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if IsMissing(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		labels = append(labels, v)
	}

	numeric := true
	nums := make(map[string]float64, len(labels))
	for _, l := range labels {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[l] = f
	}
	sort.Slice(labels, func(i, j int) bool {
		if numeric {
			return nums[labels[i]] < nums[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}
