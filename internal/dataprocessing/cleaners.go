package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"climatedash/internal/errors"
	"climatedash/pkg/contracts/domain"
)

// TemperatureRow is one yearly global temperature anomaly.
type TemperatureRow struct {
	Source string
	Year   int
	Mean   *float64
}

// CleanTemperature keeps every GISTEMP row and appends gcag rows only for
// years GISTEMP lacks. The result is sorted by Year.
func CleanTemperature(df dataframe.DataFrame) ([]TemperatureRow, error) {
	if err := requireColumns(df, SourceTemperature, columnSource, domain.ColumnYear, columnMean); err != nil {
		return nil, err
	}

	sources := df.Col(columnSource)
	years := df.Col(domain.ColumnYear)
	means := df.Col(columnMean)

	var gistemp, gcag []TemperatureRow
	for i := 0; i < df.Nrow(); i++ {
		src, ok := cellString(sources, i)
		if !ok {
			continue
		}
		year, ok := cellInt(years, i)
		if !ok {
			continue
		}
		row := TemperatureRow{Source: src, Year: year, Mean: cellFloat(means, i, false)}
		switch src {
		case TemperatureGISTEMP:
			gistemp = append(gistemp, row)
		case TemperatureGCAG:
			gcag = append(gcag, row)
		}
	}

	covered := make(map[int]struct{}, len(gistemp))
	for _, row := range gistemp {
		covered[row.Year] = struct{}{}
	}

	out := append([]TemperatureRow{}, gistemp...)
	for _, row := range gcag {
		if _, ok := covered[row.Year]; !ok {
			out = append(out, row)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// CleanEmissions reshapes the wide CO2 emissions table, 1970 to 2023.
func CleanEmissions(df dataframe.DataFrame) (domain.Series, error) {
	return cleanEmissionTable(df, SourceEmissions, domain.MetricEmissions, emissionsYears)
}

// CleanEmissionsPerGDP reshapes the wide emissions per GDP table, 1990 to 2023.
func CleanEmissionsPerGDP(df dataframe.DataFrame) (domain.Series, error) {
	return cleanEmissionTable(df, SourceEmissionsPerGDP, domain.MetricEmissionsPerGDP, perEmissionsYears)
}

// CleanEmissionsPerCapita reshapes the wide emissions per capita table, 1990 to 2023.
func CleanEmissionsPerCapita(df dataframe.DataFrame) (domain.Series, error) {
	return cleanEmissionTable(df, SourceEmissionsPerCapita, domain.MetricEmissionsPerCapita, perEmissionsYears)
}

func cleanEmissionTable(df dataframe.DataFrame, key SourceKey, metric domain.Metric, years YearRange) (domain.Series, error) {
	if err := requireColumns(df, key, domain.ColumnCountry); err != nil {
		return domain.Series{}, err
	}

	kept, err := filterIn(df, key, domain.ColumnCountry, emissionCountries)
	if err != nil {
		return domain.Series{}, err
	}

	out := melt(kept, domain.ColumnCountry, metric, years, false)
	for i := range out.Observations {
		if out.Observations[i].Country == globalTotal {
			out.Observations[i].Country = domain.World
		}
	}
	sortByKey(out.Observations)
	return out, nil
}

// CleanGDP reshapes the wide GDP per capita table, 1980 to 2023. Values use
// thousands separators which are stripped before coercion.
func CleanGDP(df dataframe.DataFrame) (domain.Series, error) {
	if err := requireColumns(df, SourceGDP, domain.ColumnCountry); err != nil {
		return domain.Series{}, err
	}

	notIMF := df.Filter(dataframe.F{
		Colname:    domain.ColumnCountry,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return !el.IsNA() && strings.TrimSpace(el.String()) != "" &&
				!strings.Contains(el.String(), internationalMonFun)
		},
	})
	if notIMF.Err != nil {
		return domain.Series{}, errors.NewParsingError("failed to filter gdp rows", notIMF.Err)
	}

	kept, err := filterIn(notIMF, SourceGDP, domain.ColumnCountry, coreCountries)
	if err != nil {
		return domain.Series{}, err
	}

	return melt(kept, domain.ColumnCountry, domain.MetricGDPPerCapita, gdpYears, true), nil
}

// CleanRenewables keeps Country, Year and Renewable_Share of the allow-listed entities.
func CleanRenewables(df dataframe.DataFrame) (domain.Series, error) {
	return cleanEntityTable(df, SourceRenewables, columnRenewables, domain.MetricRenewableShare)
}

// CleanEnergy keeps Country, Year and Energy_per_capita of the allow-listed entities.
func CleanEnergy(df dataframe.DataFrame) (domain.Series, error) {
	return cleanEntityTable(df, SourceEnergy, columnEnergyPerCap, domain.MetricEnergyPerCapita)
}

func cleanEntityTable(df dataframe.DataFrame, key SourceKey, valueColumn string, metric domain.Metric) (domain.Series, error) {
	if err := requireColumns(df, key, columnEntity, domain.ColumnYear, valueColumn); err != nil {
		return domain.Series{}, err
	}

	kept, err := filterIn(df, key, columnEntity, worldCountries)
	if err != nil {
		return domain.Series{}, err
	}
	kept = kept.Rename(domain.ColumnCountry, columnEntity).
		Rename(string(metric), valueColumn).
		Select([]string{domain.ColumnCountry, domain.ColumnYear, string(metric)})
	if kept.Err != nil {
		return domain.Series{}, errors.NewParsingError(fmt.Sprintf("failed to reshape %s", key), kept.Err)
	}

	countries := kept.Col(domain.ColumnCountry)
	years := kept.Col(domain.ColumnYear)
	values := kept.Col(string(metric))

	out := domain.Series{Metric: metric, Observations: make([]domain.Observation, 0, kept.Nrow())}
	for i := 0; i < kept.Nrow(); i++ {
		country, _ := cellString(countries, i)
		year, ok := cellInt(years, i)
		if !ok {
			continue
		}
		out.Observations = append(out.Observations, domain.Observation{
			Country: country,
			Year:    year,
			Value:   cellFloat(values, i, false),
		})
	}
	return out, nil
}

// CleanPopulation reshapes the wide World Bank population table, 1980 to 2023.
func CleanPopulation(df dataframe.DataFrame) (domain.Series, error) {
	if err := requireColumns(df, SourcePopulation, columnCountryName); err != nil {
		return domain.Series{}, err
	}

	kept, err := filterIn(df, SourcePopulation, columnCountryName, worldCountries)
	if err != nil {
		return domain.Series{}, err
	}
	kept = kept.Rename(domain.ColumnCountry, columnCountryName)
	if kept.Err != nil {
		return domain.Series{}, errors.NewParsingError("failed to rename population columns", kept.Err)
	}

	return melt(kept, domain.ColumnCountry, domain.MetricPopulation, populationYears, false), nil
}

// melt turns one column per year into one observation per (country, year),
// grouped by year like a pandas melt. Absent year columns yield missing values.
func melt(df dataframe.DataFrame, idColumn string, metric domain.Metric, years YearRange, thousands bool) domain.Series {
	ids := df.Col(idColumn)
	names := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		names[name] = struct{}{}
	}

	out := domain.Series{Metric: metric, Observations: make([]domain.Observation, 0, df.Nrow()*(years.To-years.From+1))}
	for _, year := range years.Years() {
		colName := strconv.Itoa(year)
		_, present := names[colName]

		var col series.Series
		if present {
			col = df.Col(colName)
		}
		for i := 0; i < df.Nrow(); i++ {
			country, _ := cellString(ids, i)
			obs := domain.Observation{Country: country, Year: year}
			if present {
				obs.Value = cellFloat(col, i, thousands)
			}
			out.Observations = append(out.Observations, obs)
		}
	}
	return out
}

func filterIn(df dataframe.DataFrame, key SourceKey, column string, allowed []string) (dataframe.DataFrame, error) {
	kept := df.Filter(dataframe.F{Colname: column, Comparator: series.In, Comparando: allowed})
	if kept.Err != nil {
		return kept, errors.NewParsingError(fmt.Sprintf("failed to filter %s by %s", key, column), kept.Err)
	}
	return kept, nil
}

func requireColumns(df dataframe.DataFrame, key SourceKey, columns ...string) error {
	names := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		names[name] = struct{}{}
	}
	for _, col := range columns {
		if _, ok := names[col]; !ok {
			return errors.NewParsingError(fmt.Sprintf("%s dataset has no %q column", key, col), nil).
				WithContext("source", string(key))
		}
	}
	return nil
}

func sortByKey(obs []domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Country != obs[j].Country {
			return obs[i].Country < obs[j].Country
		}
		return obs[i].Year < obs[j].Year
	})
}

// cellString returns the trimmed cell text; empty and NA cells are missing.
func cellString(col series.Series, i int) (string, bool) {
	el := col.Elem(i)
	if el.IsNA() {
		return "", false
	}
	s := strings.TrimSpace(el.String())
	return s, s != ""
}

// cellInt parses a year cell. Values such as "2001.0" are accepted.
func cellInt(col series.Series, i int) (int, bool) {
	s, ok := cellString(col, i)
	if !ok {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// cellFloat coerces a cell to a number; anything unparseable is missing.
func cellFloat(col series.Series, i int, thousands bool) *float64 {
	s, ok := cellString(col, i)
	if !ok {
		return nil
	}
	if thousands {
		s = strings.ReplaceAll(s, ",", "")
	}
	return parseNumber(s)
}

func parseNumber(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	return &f
}
