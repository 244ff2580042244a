package dataset

import (
	"github.com/montanaflynn/stats"
)

// Summary summarizes a numeric column.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Describe summarizes the numeric values of the named column, skipping
// missing and non-numeric cells.
func (t *Table) Describe(column string) (Summary, error) {
	cells, err := t.Column(column)
	if err != nil {
		return Summary{}, err
	}
	var data stats.Float64Data
	for _, cell := range cells {
		value, missing, err := parseNumber(cell)
		if err != nil || missing {
			continue
		}
		data = append(data, value)
	}
	if data.Len() <= 0 {
		return Summary{}, nil
	}
	summary := Summary{Count: data.Len()}
	// with a non-empty input these cannot fail
	summary.Min, _ = data.Min()
	summary.Max, _ = data.Max()
	summary.Mean, _ = data.Mean()
	summary.Median, _ = data.Median()
	return summary, nil
}
