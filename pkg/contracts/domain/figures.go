package domain

// FigureQuery is the dashboard filter state shared by all four figures.
type FigureQuery struct {
	Country  string `json:"country"`
	Metric   Metric `json:"metric"`
	FromYear int    `json:"from"`
	ToYear   int    `json:"to"`
}

// TimeSeriesFigure is a metric over time for one country.
type TimeSeriesFigure struct {
	Title   string  `json:"title"`
	Country string  `json:"country"`
	Metric  Metric  `json:"metric"`
	Points  []Point `json:"points"`
	Gaps    []int   `json:"gaps,omitempty"`
}

// CorrelationFigure is a Pearson correlation matrix. Nil cells are undefined.
type CorrelationFigure struct {
	Title   string       `json:"title"`
	Country string       `json:"country"`
	Metrics []Metric     `json:"metrics"`
	Matrix  [][]*float64 `json:"matrix"`
}

// ComparisonBar is one country of the comparison chart.
type ComparisonBar struct {
	Country string   `json:"country"`
	Value   *float64 `json:"value"`
}

// ComparisonFigure compares countries in the latest filtered year.
type ComparisonFigure struct {
	Title  string          `json:"title"`
	Metric Metric          `json:"metric"`
	Year   int             `json:"year"`
	Bars   []ComparisonBar `json:"bars"`
}

// ForecastFigure overlays a forecast on the observed history.
type ForecastFigure struct {
	Title      string          `json:"title"`
	Country    string          `json:"country"`
	Metric     Metric          `json:"metric"`
	Historical []Point         `json:"historical"`
	Forecast   []ForecastPoint `json:"forecast"`
}

// Empty reports whether the figure has nothing to draw.
func (f ForecastFigure) Empty() bool {
	return len(f.Forecast) == 0
}

// Figures is the output of one dashboard refresh.
type Figures struct {
	Query       FigureQuery       `json:"query"`
	TimeSeries  TimeSeriesFigure  `json:"time_series"`
	Correlation CorrelationFigure `json:"correlation"`
	Comparison  ComparisonFigure  `json:"comparison"`
	Forecast    ForecastFigure    `json:"forecast"`
}
