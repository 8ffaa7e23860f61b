package dataprocessing

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"climatedash/internal/errors"
	"climatedash/pkg/contracts/domain"
)

// ReadTable loads a processed_data.csv file back into a unified table.
func ReadTable(path string) (domain.Table, error) {
	df, err := ReadCSVFile(path)
	if err != nil {
		return domain.Table{}, err
	}
	return TableFromDataFrame(df)
}

// TableFromDataFrame converts a processed dataframe. Country and Year are
// required; absent metric columns are missing on every row. Rows whose Year
// does not parse are dropped.
func TableFromDataFrame(df dataframe.DataFrame) (domain.Table, error) {
	names := make(map[string]struct{}, df.Ncol())
	for _, n := range df.Names() {
		names[n] = struct{}{}
	}
	for _, col := range []string{domain.ColumnCountry, domain.ColumnYear} {
		if _, ok := names[col]; !ok {
			return domain.Table{}, errors.NewParsingError(fmt.Sprintf("processed data has no %q column", col), nil)
		}
	}

	countries := df.Col(domain.ColumnCountry)
	years := df.Col(domain.ColumnYear)

	columns := make(map[domain.Metric]series.Series, len(domain.UnifiedMetrics))
	for _, m := range domain.UnifiedMetrics {
		if _, ok := names[string(m)]; ok {
			columns[m] = df.Col(string(m))
		}
	}

	table := domain.Table{Records: make([]domain.UnifiedRecord, 0, df.Nrow())}
	for i := 0; i < df.Nrow(); i++ {
		country, _ := cellString(countries, i)
		year, ok := cellInt(years, i)
		if !ok {
			continue
		}
		rec := domain.NewUnifiedRecord(country, year)
		for _, m := range domain.UnifiedMetrics {
			if col, ok := columns[m]; ok {
				rec.Set(m, cellFloat(col, i, false))
			} else {
				rec.Set(m, nil)
			}
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}
