package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrDateParse is the error wrapped by DateParseError.
var ErrDateParse = errors.New("cannot parse date")

// DateParseError is the error for a malformed date cell.
type DateParseError struct {
	Column string
	Row    int
	Value  string
}

// Error implements error.
func (e *DateParseError) Error() string {
	return fmt.Sprintf("%s: row %d: %s %q", ErrDateParse.Error(), e.Row, e.Column, e.Value)
}

// Unwrap allows errors.Is(err, ErrDateParse).
func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}

// DatePolicy controls what NormalizeDates does with malformed dates.
type DatePolicy string

const (
	// DatePolicyStrict fails with a DateParseError.
	DatePolicyStrict = DatePolicy("strict")

	// DatePolicyCoerce replaces malformed dates with the null date.
	DatePolicyCoerce = DatePolicy("coerce")
)

const (
	// DateLayout is the canonical layout of a date-only column.
	DateLayout = "2006-01-02"

	// DateTimeLayout is the canonical layout of a column where at
	// least one value has a time of day.
	DateTimeLayout = "2006-01-02 15:04:05"
)

// inputLayouts are the layouts accepted by ParseDate, in order.
var inputLayouts = []string{
	DateLayout,
	DateTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04",
}

// ParseDate parses s with any of the accepted layouts. Values carrying
// a zone offset keep their wall-clock date and time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrDateParse, "%q", s)
}

// DateStats describes the outcome of NormalizeDates.
type DateStats struct {
	Parsed  int
	Nulls   int
	Coerced int
}

// NormalizeDates rewrites the named column in canonical form, in place.
// Empty cells are null dates and stay empty.
func (t *Table) NormalizeDates(column string, policy DatePolicy) (DateStats, error) {
	var stats DateStats
	col, err := t.columnIndex(column)
	if err != nil {
		return stats, err
	}
	values := make([]*time.Time, len(t.rows))
	layout := DateLayout
	for idx, row := range t.rows {
		if strings.TrimSpace(row[col]) == "" {
			stats.Nulls++
			continue
		}
		value, err := ParseDate(row[col])
		if err != nil {
			if policy != DatePolicyCoerce {
				return stats, &DateParseError{Column: column, Row: idx + 1, Value: row[col]}
			}
			stats.Coerced++
			stats.Nulls++
			continue
		}
		if value.Hour() != 0 || value.Minute() != 0 || value.Second() != 0 || value.Nanosecond() != 0 {
			layout = DateTimeLayout
		}
		values[idx] = &value
		stats.Parsed++
	}
	for idx, row := range t.rows {
		row[col] = ""
		if values[idx] != nil {
			row[col] = values[idx].Format(layout)
		}
	}
	return stats, nil
}
