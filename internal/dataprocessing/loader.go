package dataprocessing

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/sync/errgroup"

	"climatedash/internal/errors"
)

// Datasets holds the raw tables keyed by source.
type Datasets map[SourceKey]dataframe.DataFrame

// LoadDatasets reads every source file in dir concurrently.
// The first missing or malformed file fails the whole load.
func LoadDatasets(ctx context.Context, dir string) (Datasets, error) {
	var (
		mu       sync.Mutex
		datasets = make(Datasets, len(Sources))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range Sources {
		src := src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, src.FileName)
			df, err := ReadCSVFile(path)
			if err != nil {
				return errors.NewStorageError(fmt.Sprintf("failed to load %s dataset", src.Key), err).
					WithContext("source", string(src.Key)).
					WithContext("path", path)
			}

			mu.Lock()
			datasets[src.Key] = df
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return datasets, nil
}

// ReadCSVFile loads a CSV file with every column typed as string.
func ReadCSVFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV loads CSV data with every column typed as string so that coercion
// stays explicit in the cleaners. A leading UTF-8 byte order mark is skipped.
// A header without rows yields an empty table, and rows shorter than the
// header are padded with missing cells. Rows longer than the header are an error.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	records, err := readRecords(skipBOM(r))
	if err != nil {
		return dataframe.DataFrame{}, errors.NewParsingError("invalid csv", err)
	}

	var df dataframe.DataFrame
	if len(records) == 1 {
		df = emptyFrame(records[0])
	} else {
		df = dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
		)
	}
	if df.Err != nil {
		return df, errors.NewParsingError("invalid csv", df.Err)
	}
	return df, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	width := len(records[0])
	for i, rec := range records[1:] {
		switch {
		case len(rec) > width:
			return nil, fmt.Errorf("record %d has %d fields, header has %d", i+1, len(rec), width)
		case len(rec) < width:
			padded := make([]string, width)
			copy(padded, rec)
			records[i+1] = padded
		}
	}
	return records, nil
}

// emptyFrame builds a zero-row table with the given string columns.
func emptyFrame(header []string) dataframe.DataFrame {
	columns := make([]series.Series, len(header))
	for i, name := range header {
		columns[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(columns...)
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
