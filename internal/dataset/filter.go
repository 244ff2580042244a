package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidBounds indicates a range whose bounds are NaN or inverted.
var ErrInvalidBounds = errors.New("invalid bounds")

// Bounds is a closed interval.
type Bounds struct {
	Min float64
	Max float64
}

// Validate returns ErrInvalidBounds unless Min <= Max.
func (b Bounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
		return errors.Wrapf(ErrInvalidBounds, "[%v, %v]", b.Min, b.Max)
	}
	return nil
}

// Contains returns whether Min <= v <= Max.
func (b Bounds) Contains(v float64) bool {
	return b.Min <= v && v <= b.Max
}

// FilterStats describes the outcome of FilterRange.
type FilterStats struct {
	Read          int
	Kept          int
	OutOfRange    int
	MissingValues int
}

// parseNumber parses a numeric cell. Empty cells and NaN are missing.
func parseNumber(cell string) (value float64, missing bool, err error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, true, nil
	}
	value, err = strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, err
	}
	return value, math.IsNaN(value), nil
}

// FilterRange returns a new table holding the rows whose column value
// lies within bounds, inclusive at both ends. Non-numeric values fail
// with ErrParse. Missing values fail with ErrParse unless allowMissing
// is true, in which case those rows are dropped.
func (t *Table) FilterRange(column string, bounds Bounds, allowMissing bool) (*Table, FilterStats, error) {
	stats := FilterStats{Read: len(t.rows)}
	if err := bounds.Validate(); err != nil {
		return nil, stats, err
	}
	col, err := t.columnIndex(column)
	if err != nil {
		return nil, stats, err
	}
	out := &Table{header: t.Header(), index: t.index}
	for idx, row := range t.rows {
		value, missing, err := parseNumber(row[col])
		if err != nil {
			return nil, stats, errors.Wrapf(ErrParse, "row %d: %s %q is not a number", idx+1, column, row[col])
		}
		if missing {
			if !allowMissing {
				return nil, stats, errors.Wrapf(ErrParse, "row %d: missing %s", idx+1, column)
			}
			stats.MissingValues++
			continue
		}
		if !bounds.Contains(value) {
			stats.OutOfRange++
			continue
		}
		out.rows = append(out.rows, append([]string{}, row...))
	}
	stats.Kept = len(out.rows)
	return out, stats, nil
}
