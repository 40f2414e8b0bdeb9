// Package tabular is the reference table format handed to module phases: a
// header row plus string cells, stored on disk as tab-separated .tab files.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTableNotFound reports a table a source does not hold.
var ErrTableNotFound = errors.New("tabular: table not found")

// Table is an in-memory table with named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given columns.
func New(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row; it must have one value per column.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("tabular: row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), values...))
	return nil
}

// Len returns the row count.
func (t Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column, or -1.
func (t Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns every value of column in row order.
func (t Table) Column(column string) ([]string, error) {
	i := t.Index(column)
	if i < 0 {
		return nil, fmt.Errorf("tabular: no column %q", column)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats returns column parsed as float64 values.
func (t Table) Floats(column string) ([]float64, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("tabular: column %q row %d: %w", column, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// RequireColumns fails unless every named column is present.
func (t Table) RequireColumns(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if t.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tabular: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// Read decodes a tab-separated table whose first line is the header.
func Read(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("tabular: %w", err)
	}
	if len(records) == 0 {
		return Table{}, errors.New("tabular: missing header")
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}

// Write encodes t as a tab-separated table.
func Write(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("tabular: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("tabular: %w", err)
	}
	return nil
}
