package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"climatedash/internal/validation"
	"climatedash/pkg/contracts/domain"
)

// Processor runs the load, clean and unify stages against one input directory.
type Processor struct {
	logger *slog.Logger
	dir    string
}

// NewProcessor creates a processor reading sources from dir.
func NewProcessor(dir string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, dir: dir}
}

// Dir returns the input directory.
func (p *Processor) Dir() string {
	return p.dir
}

// Load reads every source file.
func (p *Processor) Load(ctx context.Context) (Datasets, error) {
	p.logger.InfoContext(ctx, "loading source datasets", slog.String("dir", p.dir))

	if err := validation.NewFileValidator(p.logger).ValidateSources(p.dir, SourceFileNames()); err != nil {
		return nil, err
	}

	ds, err := LoadDatasets(ctx, p.dir)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to load source datasets",
			slog.String("dir", p.dir),
			slog.String("error", err.Error()))
		return nil, err
	}

	for _, src := range Sources {
		df := ds[src.Key]
		p.logger.DebugContext(ctx, "source loaded",
			slog.String("source", string(src.Key)),
			slog.Int("rows", df.Nrow()),
			slog.Int("columns", df.Ncol()))
	}
	return ds, nil
}

// Clean applies the per-source cleaning rules.
func (p *Processor) Clean(ctx context.Context, ds Datasets) (CleanedDatasets, error) {
	var (
		out CleanedDatasets
		err error
	)

	if out.Temperature, err = CleanTemperature(dataset(ds, SourceTemperature)); err != nil {
		return out, err
	}

	cleaners := []struct {
		key   SourceKey
		dst   *domain.Series
		clean func(dataframe.DataFrame) (domain.Series, error)
	}{
		{SourceEmissions, &out.Emissions, CleanEmissions},
		{SourceGDP, &out.GDP, CleanGDP},
		{SourceRenewables, &out.Renewables, CleanRenewables},
		{SourceEnergy, &out.Energy, CleanEnergy},
		{SourcePopulation, &out.Population, CleanPopulation},
		{SourceEmissionsPerGDP, &out.EmissionsPerGDP, CleanEmissionsPerGDP},
		{SourceEmissionsPerCapita, &out.EmissionsPerCapita, CleanEmissionsPerCapita},
	}
	for _, s := range cleaners {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if *s.dst, err = s.clean(dataset(ds, s.key)); err != nil {
			return out, fmt.Errorf("clean %s: %w", s.key, err)
		}
		p.logger.DebugContext(ctx, "source cleaned",
			slog.String("source", string(s.key)),
			slog.Int("observations", s.dst.Len()))
	}

	p.logger.InfoContext(ctx, "source datasets cleaned",
		slog.Int("temperature_years", len(out.Temperature)),
		slog.Int("emission_rows", out.Emissions.Len()))
	return out, nil
}

// Unify joins the cleaned sources into the unified table.
func (p *Processor) Unify(ctx context.Context, c CleanedDatasets) domain.Table {
	table := Unify(c)
	p.logger.InfoContext(ctx, "unified dataset created",
		slog.Int("rows", table.Len()),
		slog.Int("countries", len(table.Countries())))
	return table
}

// CreateUnifiedDataset loads, cleans and unifies the sources in dir.
func (p *Processor) CreateUnifiedDataset(ctx context.Context) (domain.Table, error) {
	ds, err := p.Load(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	cleaned, err := p.Clean(ctx, ds)
	if err != nil {
		return domain.Table{}, err
	}
	return p.Unify(ctx, cleaned), nil
}

// CreateUnifiedDataset is a shorthand for NewProcessor(dir, nil).CreateUnifiedDataset(ctx).
func CreateUnifiedDataset(ctx context.Context, dir string) (domain.Table, error) {
	return NewProcessor(dir, nil).CreateUnifiedDataset(ctx)
}

func dataset(ds Datasets, key SourceKey) dataframe.DataFrame {
	if df, ok := ds[key]; ok {
		return df
	}
	return dataframe.New()
}
