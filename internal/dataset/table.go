// Package dataset implements the in-memory CSV table the cleaning
// pipeline filters and transforms.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/fsx"
)

// byteOrderMark is the UTF-8 BOM some spreadsheet exports prepend.
const byteOrderMark = "\ufeff"

// ErrParse indicates malformed CSV or a missing required column.
var ErrParse = errors.New("cannot parse dataset")

// Table is a CSV dataset loaded in memory. Every row has as many
// cells as the header.
type Table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

// New creates a Table from a header and rows, which are copied.
func New(header []string, rows [][]string) (*Table, error) {
	t := &Table{
		header: append([]string{}, header...),
		index:  map[string]int{},
	}
	for idx, name := range t.header {
		if _, found := t.index[name]; found {
			return nil, errors.Wrapf(ErrParse, "duplicate column %q", name)
		}
		t.index[name] = idx
	}
	for idx, row := range rows {
		if len(row) != len(t.header) {
			return nil, errors.Wrapf(ErrParse, "row %d has %d fields, expected %d", idx+1, len(row), len(t.header))
		}
		t.rows = append(t.rows, append([]string{}, row...))
	}
	return t, nil
}

// ReadCSV reads the CSV file at path.
func ReadCSV(path string) (*Table, error) {
	fp, err := fsx.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Parse(fp)
}

// Parse reads a CSV table from r. The first record is the header.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	if len(records) < 1 {
		return nil, errors.Wrap(ErrParse, "missing header")
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], byteOrderMark)
	}
	return New(records[0], records[1:])
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string{}, t.header...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the idx-th row.
func (t *Table) Row(idx int) []string {
	return append([]string{}, t.rows[idx]...)
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	col, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, row[col])
	}
	return out, nil
}

// RequireColumns fails with ErrParse unless all the names are columns.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if _, err := t.columnIndex(name); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) columnIndex(name string) (int, error) {
	col, found := t.index[name]
	if !found {
		return 0, errors.Wrapf(ErrParse, "missing column %q", name)
	}
	return col, nil
}

// Write writes the header and the rows as CSV to w.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteCSV writes the table to a new file at path.
func (t *Table) WriteCSV(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(fp); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
