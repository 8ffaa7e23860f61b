package dataprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"climatedash/pkg/contracts/domain"
)

// SummaryRows are the statistic labels in output order.
var SummaryRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ColumnSummary is the describe() column of one numeric field.
// Statistics that are undefined for the column are nil.
type ColumnSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Q50    *float64 `json:"q50"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
}

// Values returns the statistics in SummaryRows order.
func (c ColumnSummary) Values() []*float64 {
	return []*float64{domain.Float(float64(c.Count)), c.Mean, c.Std, c.Min, c.Q25, c.Q50, c.Q75, c.Max}
}

// SummaryStats is the summary of every numeric column of the unified table.
type SummaryStats struct {
	Columns []ColumnSummary `json:"columns"`
}

// Column returns the summary of one column.
func (s SummaryStats) Column(name string) (ColumnSummary, bool) {
	for _, c := range s.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Summarize computes count, mean, sample std, min, quartiles and max for
// Year and every metric, ignoring missing values.
func Summarize(table domain.Table) SummaryStats {
	stats := SummaryStats{Columns: make([]ColumnSummary, 0, len(domain.UnifiedMetrics)+1)}
	stats.Columns = append(stats.Columns, describe(domain.ColumnYear, table.Years()))
	for _, m := range domain.UnifiedMetrics {
		stats.Columns = append(stats.Columns, describe(string(m), table.Column(m)))
	}
	return stats
}

func describe(name string, column []*float64) ColumnSummary {
	values := make([]float64, 0, len(column))
	for _, v := range column {
		if v != nil && !math.IsNaN(*v) {
			values = append(values, *v)
		}
	}

	out := ColumnSummary{Column: name, Count: len(values)}
	if len(values) == 0 {
		return out
	}

	sort.Float64s(values)
	out.Mean = domain.Float(stat.Mean(values, nil))
	if len(values) > 1 {
		out.Std = domain.Float(stat.StdDev(values, nil))
	}
	out.Min = domain.Float(floats.Min(values))
	out.Max = domain.Float(floats.Max(values))
	out.Q25 = domain.Float(quantile(values, 0.25))
	out.Q50 = domain.Float(quantile(values, 0.50))
	out.Q75 = domain.Float(quantile(values, 0.75))
	return out
}

// quantile interpolates linearly between the closest ranks at q*(n-1).
// sorted must be ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
