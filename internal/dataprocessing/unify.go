package dataprocessing

import (
	"climatedash/pkg/contracts/domain"
)

// CleanedDatasets holds every source after cleaning.
type CleanedDatasets struct {
	Temperature        []TemperatureRow
	Emissions          domain.Series
	GDP                domain.Series
	Renewables         domain.Series
	Energy             domain.Series
	Population         domain.Series
	EmissionsPerGDP    domain.Series
	EmissionsPerCapita domain.Series
}

// Unify starts from the emissions rows and left-joins the other series on
// (Country, Year), then temperature on Year. A right side with repeated keys
// repeats the left row once per match, in left order.
func Unify(c CleanedDatasets) domain.Table {
	records := make([]domain.UnifiedRecord, 0, len(c.Emissions.Observations))
	for _, obs := range c.Emissions.Observations {
		rec := domain.NewUnifiedRecord(obs.Country, obs.Year)
		rec.Set(domain.MetricEmissions, obs.Value)
		records = append(records, rec)
	}

	// Columns are named by the join, not by the series, so an absent source
	// still yields its column.
	joins := []struct {
		metric domain.Metric
		series domain.Series
	}{
		{domain.MetricGDPPerCapita, c.GDP},
		{domain.MetricRenewableShare, c.Renewables},
		{domain.MetricEnergyPerCapita, c.Energy},
		{domain.MetricPopulation, c.Population},
		{domain.MetricEmissionsPerGDP, c.EmissionsPerGDP},
		{domain.MetricEmissionsPerCapita, c.EmissionsPerCapita},
	}
	for _, j := range joins {
		records = joinSeries(records, j.metric, j.series)
	}

	records = joinTemperature(records, c.Temperature)
	return domain.Table{Records: records}
}

func joinSeries(left []domain.UnifiedRecord, metric domain.Metric, right domain.Series) []domain.UnifiedRecord {
	index := make(map[domain.Key][]*float64, len(right.Observations))
	for _, obs := range right.Observations {
		k := obs.Key()
		index[k] = append(index[k], obs.Value)
	}

	return leftJoin(left, metric, func(rec domain.UnifiedRecord) []*float64 {
		return index[rec.Key()]
	})
}

func joinTemperature(left []domain.UnifiedRecord, rows []TemperatureRow) []domain.UnifiedRecord {
	index := make(map[int][]*float64, len(rows))
	for _, row := range rows {
		index[row.Year] = append(index[row.Year], row.Mean)
	}

	return leftJoin(left, domain.MetricGlobalTemperature, func(rec domain.UnifiedRecord) []*float64 {
		return index[rec.Year]
	})
}

func leftJoin(left []domain.UnifiedRecord, metric domain.Metric, lookup func(domain.UnifiedRecord) []*float64) []domain.UnifiedRecord {
	out := make([]domain.UnifiedRecord, 0, len(left))
	for _, rec := range left {
		matches := lookup(rec)
		if len(matches) == 0 {
			rec.Set(metric, nil)
			out = append(out, rec)
			continue
		}
		for i, v := range matches {
			row := rec
			if i > 0 {
				row = rec.Clone()
			}
			row.Set(metric, v)
			out = append(out, row)
		}
	}
	return out
}
