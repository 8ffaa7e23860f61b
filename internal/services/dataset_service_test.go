package services

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"climatedash/internal/forecast"
	"climatedash/pkg/contracts/domain"
	"climatedash/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache stops its janitor from a finalizer only.
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

const processedCSV = `Country,Year,Emissions,GDP_per_capita,Renewable_Share,Energy_per_capita,Population,Emissions_per_GDP,Emissions_per_capita,Global_Temperature
China,2000,1.0,10.0,5.0,100.0,,,,0.4
China,2001,2.0,20.0,4.0,200.0,,,,0.5
China,2002,,30.0,3.0,300.0,,,,0.6
China,2003,4.0,40.0,2.0,400.0,,,,0.7
World,2000,10.0,,7.0,1000.0,,,,0.4
World,2001,11.0,,7.0,1000.0,,,,0.5
World,2002,12.0,,7.0,1000.0,,,,0.6
World,2003,13.0,,7.0,1000.0,,,,0.7
India,2003,3.0,,,,,,,0.7
`

func newLoadedService(t *testing.T, provider forecast.Provider) *DatasetService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(processedCSV), 0o644))

	s := NewDatasetService(path, provider, nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestDatasetServiceLoad(t *testing.T) {
	s := newLoadedService(t, nil)

	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"China", domain.World, "India"}, s.Countries())
	assert.Equal(t, domain.World, s.DefaultCountry())

	minYear, maxYear, ok := s.YearBounds()
	require.True(t, ok)
	assert.Equal(t, 2000, minYear)
	assert.Equal(t, 2003, maxYear)

	rows, _ := s.Stats()
	assert.Equal(t, 9, rows)
	assert.Equal(t, domain.SelectableMetrics, s.Metrics())
}

func TestDatasetServiceLoadMissingFile(t *testing.T) {
	s := NewDatasetService(filepath.Join(t.TempDir(), "missing.csv"), nil, nil)
	assert.Error(t, s.Load(context.Background()))
	assert.False(t, s.Loaded())

	_, err := s.ResolveQuery(domain.FigureQuery{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDatasetServiceDefaultCountryWithoutWorld(t *testing.T) {
	s := NewDatasetService("", nil, nil)
	s.SetTable(domain.Table{Records: []domain.UnifiedRecord{
		domain.NewUnifiedRecord("Japan", 2000),
		domain.NewUnifiedRecord("Iran", 2000),
	}})
	assert.Equal(t, "Japan", s.DefaultCountry())
}

func TestResolveQuery(t *testing.T) {
	s := newLoadedService(t, nil)

	tests := []struct {
		name    string
		in      domain.FigureQuery
		want    domain.FigureQuery
		wantErr error
	}{
		{
			name: "defaults",
			in:   domain.FigureQuery{},
			want: domain.FigureQuery{Country: domain.World, Metric: domain.MetricEmissions, FromYear: 2000, ToYear: 2003},
		},
		{
			name: "explicit",
			in:   domain.FigureQuery{Country: "China", Metric: domain.MetricGDPPerCapita, FromYear: 2001, ToYear: 2002},
			want: domain.FigureQuery{Country: "China", Metric: domain.MetricGDPPerCapita, FromYear: 2001, ToYear: 2002},
		},
		{name: "unknown country", in: domain.FigureQuery{Country: "Atlantis"}, wantErr: ErrUnknownCountry},
		{name: "unknown metric", in: domain.FigureQuery{Metric: "Happiness"}, wantErr: ErrUnknownMetric},
		{name: "inverted range", in: domain.FigureQuery{FromYear: 2003, ToYear: 2001}, wantErr: ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveQuery(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter(t *testing.T) {
	s := newLoadedService(t, nil)

	rows := s.Filter("China", 2001, 2002)
	require.Len(t, rows, 2)
	assert.Equal(t, 2001, rows[0].Year)
	assert.Equal(t, 2002, rows[1].Year)

	assert.Empty(t, s.Filter("China", 1990, 1995))
}

func TestTimeSeries(t *testing.T) {
	s := newLoadedService(t, nil)

	fig, err := s.TimeSeries(domain.FigureQuery{Country: "China", Metric: domain.MetricEmissions})
	require.NoError(t, err)

	assert.Equal(t, "Emissions Over Time - China", fig.Title)
	want := []domain.Point{{Year: 2000, Value: 1}, {Year: 2001, Value: 2}, {Year: 2003, Value: 4}}
	if diff := cmp.Diff(want, fig.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{2002}, fig.Gaps)
}

func TestCorrelation(t *testing.T) {
	s := newLoadedService(t, nil)

	fig, err := s.Correlation(domain.FigureQuery{Country: "China"})
	require.NoError(t, err)
	assert.Equal(t, "Correlation Matrix - China", fig.Title)
	require.Len(t, fig.Matrix, len(domain.CorrelationMetrics))

	// Emissions, GDP_per_capita, Energy_per_capita, Renewable_Share
	require.NotNil(t, fig.Matrix[0][1])
	assert.InDelta(t, 1.0, *fig.Matrix[0][1], 1e-12)
	assert.InDelta(t, 1.0, *fig.Matrix[1][2], 1e-12)
	assert.InDelta(t, -1.0, *fig.Matrix[1][3], 1e-12)
	assert.InDelta(t, 1.0, *fig.Matrix[3][3], 1e-12)
	assert.Equal(t, fig.Matrix[0][3], fig.Matrix[3][0])

	world, err := s.Correlation(domain.FigureQuery{Country: domain.World})
	require.NoError(t, err)
	// GDP is all missing; Renewable_Share and energy are constant.
	assert.Nil(t, world.Matrix[0][1])
	assert.Nil(t, world.Matrix[1][1])
	assert.Nil(t, world.Matrix[0][3])
	assert.Nil(t, world.Matrix[2][2])
	require.NotNil(t, world.Matrix[0][0])
	assert.InDelta(t, 1.0, *world.Matrix[0][0], 1e-12)
}

func TestPairwiseCorrelationUsesCompletePairs(t *testing.T) {
	rows := make([]domain.UnifiedRecord, 0, 5)
	for i, pair := range [][2]*float64{
		{domain.Float(1), domain.Float(2)},
		{domain.Float(2), nil},
		{domain.Float(3), domain.Float(6)},
		{nil, domain.Float(100)},
		{domain.Float(4), domain.Float(7)},
	} {
		rec := domain.NewUnifiedRecord("X", 2000+i)
		rec.Set(domain.MetricEmissions, pair[0])
		rec.Set(domain.MetricGDPPerCapita, pair[1])
		rows = append(rows, rec)
	}

	r := pairwiseCorrelation(rows, domain.MetricEmissions, domain.MetricGDPPerCapita)
	require.NotNil(t, r)
	// x = 1,3,4  y = 2,6,7
	want := 8.0 / math.Sqrt(14.0/3.0*14.0)
	assert.InDelta(t, want, *r, 1e-9)
}

func TestComparison(t *testing.T) {
	s := newLoadedService(t, nil)

	fig, err := s.Comparison(domain.FigureQuery{Country: "China", FromYear: 2000, ToYear: 2002})
	require.NoError(t, err)
	assert.Equal(t, "Emissions Comparison (2002)", fig.Title)
	assert.Equal(t, 2002, fig.Year)
	require.Len(t, fig.Bars, 2)
	assert.Equal(t, "China", fig.Bars[0].Country)
	assert.Nil(t, fig.Bars[0].Value)
	assert.Equal(t, 12.0, *fig.Bars[1].Value)

	latest, err := s.Comparison(domain.FigureQuery{Country: "India"})
	require.NoError(t, err)
	assert.Equal(t, 2003, latest.Year)
	assert.Len(t, latest.Bars, 3)

	empty, err := s.Comparison(domain.FigureQuery{Country: "India", FromYear: 2000, ToYear: 2001})
	require.NoError(t, err)
	assert.Empty(t, empty.Bars)
	assert.Equal(t, 0, empty.Year)
}

func TestForecastOverlay(t *testing.T) {
	s := newLoadedService(t, forecast.NewLinearTrend(2, 1.96))

	fig, err := s.ForecastOverlay(context.Background(), domain.FigureQuery{Country: domain.World})
	require.NoError(t, err)
	assert.Equal(t, "Emissions Forecast - World", fig.Title)
	assert.Len(t, fig.Historical, 4)
	require.Len(t, fig.Forecast, 2)
	assert.Equal(t, 2004, fig.Forecast[0].Year)
	assert.InDelta(t, 14.0, fig.Forecast[0].Yhat, 1e-6)

	// India has a single observation.
	india, err := s.ForecastOverlay(context.Background(), domain.FigureQuery{Country: "India"})
	require.NoError(t, err)
	assert.True(t, india.Empty())
	assert.Empty(t, india.Historical)
}

func TestFigures(t *testing.T) {
	s := newLoadedService(t, forecast.NewLinearTrend(5, 1.96))

	figs, err := s.Figures(context.Background(), domain.FigureQuery{Country: "China", Metric: domain.MetricGDPPerCapita})
	require.NoError(t, err)

	assert.Equal(t, 2000, figs.Query.FromYear)
	assert.Equal(t, "GDP_per_capita Over Time - China", figs.TimeSeries.Title)
	assert.Len(t, figs.TimeSeries.Points, 4)
	assert.Equal(t, 2003, figs.Comparison.Year)
	assert.Len(t, figs.Forecast.Forecast, 5)
	assert.Len(t, figs.Correlation.Matrix, 4)

	_, err = s.Figures(context.Background(), domain.FigureQuery{Country: "Nowhere"})
	assert.ErrorIs(t, err, ErrUnknownCountry)
}

func TestReloadNotifiesListeners(t *testing.T) {
	s := newLoadedService(t, nil)

	var got []events.DatasetReloaded
	s.OnReload(func(ev events.DatasetReloaded) { got = append(got, ev) })

	require.NoError(t, s.Reload(context.Background(), "pipeline"))
	require.Len(t, got, 1)
	assert.Equal(t, "pipeline", got[0].Source)
	assert.Equal(t, 9, got[0].Rows)
	assert.Equal(t, 2000, got[0].MinYear)
}

func TestWatchReloadsOnChange(t *testing.T) {
	s := newLoadedService(t, nil)

	var (
		mu       sync.Mutex
		reloaded []events.DatasetReloaded
	)
	s.OnReload(func(ev events.DatasetReloaded) {
		mu.Lock()
		reloaded = append(reloaded, ev)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	trimmed := strings.Join(strings.Split(processedCSV, "\n")[:3], "\n") + "\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(trimmed), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloaded) > 0 && reloaded[len(reloaded)-1].Rows == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"China"}, s.Countries())
}

func TestFigureCache(t *testing.T) {
	c := NewFigureCache(time.Minute)
	q := domain.FigureQuery{Country: "China", Metric: domain.MetricEmissions, FromYear: 2000, ToYear: 2003}
	key := c.Key("timeseries", q)
	assert.Equal(t, "timeseries|China|Emissions|2000|2003", key)

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, []byte("<svg/>"))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("<svg/>"), got)
	assert.Equal(t, 1, c.Len())

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestHealthService(t *testing.T) {
	notLoaded := NewHealthService(NewDatasetService("", nil, nil), nil, nil, nil)
	assert.Equal(t, "not_ready", notLoaded.ReadinessCheck(context.Background()).Status)

	hs := NewHealthService(newLoadedService(t, nil), nil, nil, nil)
	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", ready.Status)
	ds, ok := ready.Services["dataset"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, 9, ds.Rows)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(context.Background()).Status)
	assert.Contains(t, hs.Version(), "version")
}
