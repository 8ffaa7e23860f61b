package domain

// Metric is the name of a measured column in the unified dataset.
type Metric string

const (
	MetricEmissions          Metric = "Emissions"
	MetricGDPPerCapita       Metric = "GDP_per_capita"
	MetricRenewableShare     Metric = "Renewable_Share"
	MetricEnergyPerCapita    Metric = "Energy_per_capita"
	MetricPopulation         Metric = "Population"
	MetricEmissionsPerGDP    Metric = "Emissions_per_GDP"
	MetricEmissionsPerCapita Metric = "Emissions_per_capita"
	MetricGlobalTemperature  Metric = "Global_Temperature"
)

// Key columns of the unified dataset.
const (
	ColumnCountry = "Country"
	ColumnYear    = "Year"
)

// World is the aggregate row every source maps its global total to.
const World = "World"

// UnifiedMetrics lists the metric columns in output order.
var UnifiedMetrics = []Metric{
	MetricEmissions,
	MetricGDPPerCapita,
	MetricRenewableShare,
	MetricEnergyPerCapita,
	MetricPopulation,
	MetricEmissionsPerGDP,
	MetricEmissionsPerCapita,
	MetricGlobalTemperature,
}

// UnifiedColumns is the header of processed_data.csv.
var UnifiedColumns = append([]string{ColumnCountry, ColumnYear}, metricNames(UnifiedMetrics)...)

// CorrelationMetrics are the columns of the dashboard correlation matrix.
var CorrelationMetrics = []Metric{
	MetricEmissions,
	MetricGDPPerCapita,
	MetricEnergyPerCapita,
	MetricRenewableShare,
}

// MetricOption is one entry of the dashboard metric dropdown.
type MetricOption struct {
	Label string `json:"label"`
	Value Metric `json:"value"`
}

// SelectableMetrics is the metric dropdown, primary options first.
var SelectableMetrics = []MetricOption{
	{Label: "Emissions", Value: MetricEmissions},
	{Label: "GDP per Capita", Value: MetricGDPPerCapita},
	{Label: "Temperature", Value: MetricGlobalTemperature},
	{Label: "Renewable Share", Value: MetricRenewableShare},
	{Label: "Energy per Capita", Value: MetricEnergyPerCapita},
	{Label: "Population", Value: MetricPopulation},
	{Label: "Emissions per GDP", Value: MetricEmissionsPerGDP},
	{Label: "Emissions per Capita", Value: MetricEmissionsPerCapita},
}

// ParseMetric returns the metric named s.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range UnifiedMetrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Label returns the dropdown label of the metric, or its column name.
func (m Metric) Label() string {
	for _, opt := range SelectableMetrics {
		if opt.Value == m {
			return opt.Label
		}
	}
	return string(m)
}

func (m Metric) String() string {
	return string(m)
}

func metricNames(metrics []Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names
}

// Key identifies a row of the unified dataset.
type Key struct {
	Country string `json:"country"`
	Year    int    `json:"year"`
}

// Observation is one long-format measurement. A nil Value is missing.
type Observation struct {
	Country string   `json:"country"`
	Year    int      `json:"year"`
	Value   *float64 `json:"value"`
}

// Key returns the join key of the observation.
func (o Observation) Key() Key {
	return Key{Country: o.Country, Year: o.Year}
}

// Series is one cleaned source in long format.
type Series struct {
	Metric       Metric        `json:"metric"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Observations)
}

// Float returns a pointer to v, the non-missing value constructor.
func Float(v float64) *float64 {
	return &v
}
