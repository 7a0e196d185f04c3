package model

import "fmt"

// Dataset is a raw tabular snapshot: a header and string cells.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Validate checks every row has one cell per column and column names are unique.
func (d *Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("dataset: duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("dataset: row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}

// ColumnIndex returns the position of a column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns all cells of a column.
func (d *Dataset) Column(name string) ([]string, error) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Drop returns a copy of the dataset without the named columns. Names that are
// not present are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	keep := make([]int, 0, len(d.Columns))
	cols := make([]string, 0, len(d.Columns))
	for i, c := range d.Columns {
		if _, ok := drop[c]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}

	rows := make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		out := make([]string, len(keep))
		for j, idx := range keep {
			out[j] = row[idx]
		}
		rows[r] = out
	}

	return &Dataset{Columns: cols, Rows: rows}
}
