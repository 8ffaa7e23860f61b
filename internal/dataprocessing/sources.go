package dataprocessing

import "climatedash/pkg/contracts/domain"

// SourceKey names one of the eight input datasets.
type SourceKey string

const (
	SourceTemperature        SourceKey = "temperature"
	SourceEmissions          SourceKey = "emissions"
	SourceGDP                SourceKey = "gdp"
	SourceRenewables         SourceKey = "renewables"
	SourceEnergy             SourceKey = "energy"
	SourcePopulation         SourceKey = "population"
	SourceEmissionsPerGDP    SourceKey = "Emission_per_GDP"
	SourceEmissionsPerCapita SourceKey = "Emission_per_capita"
)

// Source describes where a dataset lives inside the input directory.
type Source struct {
	Key      SourceKey
	FileName string
}

// Sources lists every input file in load order.
var Sources = []Source{
	{Key: SourceTemperature, FileName: "global_temperatures.csv"},
	{Key: SourceEmissions, FileName: "co2_emissions.csv"},
	{Key: SourceGDP, FileName: "GDP_per_capita.csv"},
	{Key: SourceRenewables, FileName: "renewable_energy.csv"},
	{Key: SourceEnergy, FileName: "per_capita_energy_use.csv"},
	{Key: SourcePopulation, FileName: "population.csv"},
	{Key: SourceEmissionsPerGDP, FileName: "Emission_per_GDP.csv"},
	{Key: SourceEmissionsPerCapita, FileName: "Emission_per_capita.csv"},
}

// SourceFileNames returns the file name of every source in load order.
func SourceFileNames() []string {
	names := make([]string, len(Sources))
	for i, src := range Sources {
		names[i] = src.FileName
	}
	return names
}

// Source column names that differ from the unified schema.
const (
	columnSource       = "Source"
	columnMean         = "Mean"
	columnEntity       = "Entity"
	columnCountryName  = "Country Name"
	columnRenewables   = "Renewables (% equivalent primary energy)"
	columnEnergyPerCap = "Primary energy consumption per capita (kWh/person)"
)

// Temperature series identifiers. GISTEMP is primary, gcag fills its gaps.
const (
	TemperatureGISTEMP = "GISTEMP"
	TemperatureGCAG    = "gcag"
)

const (
	globalTotal         = "GLOBAL TOTAL"
	internationalMonFun = "International Monetary Fund"
)

// Countries of interest. The emission sources spell the aggregate GLOBAL TOTAL.
var (
	coreCountries = []string{
		"China", "Russia", "United States", "India", "Germany",
		"Japan", "Indonesia", "Saudi Arabia", "South Korea", "Iran",
	}
	emissionCountries = append(append([]string{}, coreCountries...), globalTotal)
	worldCountries    = append(append([]string{}, coreCountries...), domain.World)
)

// YearRange is an inclusive range of wide-format year columns.
type YearRange struct {
	From int
	To   int
}

// Years expands the range.
func (r YearRange) Years() []int {
	years := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		years = append(years, y)
	}
	return years
}

var (
	emissionsYears    = YearRange{From: 1970, To: 2023}
	gdpYears          = YearRange{From: 1980, To: 2023}
	populationYears   = YearRange{From: 1980, To: 2023}
	perEmissionsYears = YearRange{From: 1990, To: 2023}
)
