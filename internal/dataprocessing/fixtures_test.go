package dataprocessing

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"
)

// wideHeader returns "<lead>,<from>,...,<to>".
func wideHeader(lead string, years YearRange) string {
	cols := []string{lead}
	for _, y := range years.Years() {
		cols = append(cols, strconv.Itoa(y))
	}
	return strings.Join(cols, ",")
}

// wideRow returns "<name>,<value(year)>..." for every year of the range.
func wideRow(name string, years YearRange, value func(year int) string) string {
	cols := []string{name}
	for _, y := range years.Years() {
		cols = append(cols, value(y))
	}
	return strings.Join(cols, ",")
}

func yearValue(offset float64) func(int) string {
	return func(year int) string {
		return strconv.FormatFloat(float64(year)+offset, 'f', -1, 64)
	}
}

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func mustReadCSV(t *testing.T, lines ...string) dataframe.DataFrame {
	t.Helper()
	df, err := ReadCSV(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	return df
}

// writeSources writes a complete, small input directory with China and the
// world aggregate. Every value encodes its year so joins can be checked.
func writeSources(t *testing.T, dir string) {
	t.Helper()

	writeFile(t, dir, "global_temperatures.csv",
		"Source,Year,Mean",
		"GISTEMP,1990,0.45",
		"gcag,1990,0.99",
		"gcag,1970,0.03",
		"GISTEMP,2023,1.17",
	)

	writeFile(t, dir, "co2_emissions.csv",
		wideHeader("Country", emissionsYears),
		wideRow("China", emissionsYears, yearValue(0.5)),
		wideRow("GLOBAL TOTAL", emissionsYears, yearValue(10000)),
		wideRow("France", emissionsYears, yearValue(1)),
	)

	writeFile(t, dir, "GDP_per_capita.csv",
		wideHeader("Country", gdpYears),
		wideRow("China", gdpYears, func(int) string { return `"1,200.5"` }),
		wideRow(`"International Monetary Fund, World Economic Outlook"`, gdpYears, yearValue(0)),
	)

	writeFile(t, dir, "renewable_energy.csv",
		"Entity,Code,Year,Renewables (% equivalent primary energy)",
		"China,CHN,1990,3.5",
		"World,OWID_WRL,1990,7.25",
		"France,FRA,1990,9",
	)

	writeFile(t, dir, "per_capita_energy_use.csv",
		"Entity,Code,Year,Primary energy consumption per capita (kWh/person)",
		"China,CHN,1990,7000",
		"World,OWID_WRL,2023,21000",
	)

	writeFile(t, dir, "population.csv",
		wideHeader(`Country Name,Country Code`, populationYears),
		wideRow("China,CHN", populationYears, func(int) string { return "1000000" }),
		wideRow("World,WLD", populationYears, func(int) string { return "8000000" }),
	)

	writeFile(t, dir, "Emission_per_GDP.csv",
		wideHeader("Country", perEmissionsYears),
		wideRow("China", perEmissionsYears, func(int) string { return "0.4" }),
	)

	writeFile(t, dir, "Emission_per_capita.csv",
		wideHeader("Country", perEmissionsYears),
		wideRow("GLOBAL TOTAL", perEmissionsYears, func(int) string { return "4.7" }),
	)
}
