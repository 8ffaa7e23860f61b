// Package dataprocessing turns the eight climate and economic source files into
// one unified (Country, Year) table.
//
// # Architecture
//
// The package is organized into four stages:
//
// 1. Loader: reads every source CSV concurrently into string-typed dataframes
// 2. Cleaners: filter each source to the countries of interest and reshape it to long format
// 3. Unify: left-joins the cleaned sources onto the emissions rows
// 4. Summary: describe()-style statistics over the unified table
//
// # Usage
//
//	processor := dataprocessing.NewProcessor("climate_data", logger)
//	table, err := processor.CreateUnifiedDataset(ctx)
//	if err != nil {
//	    return err
//	}
//	stats := dataprocessing.Summarize(table)
//
// # Data Flow
//
//	CSV files → LoadDatasets → Clean* → Unify → Table → Summarize
//
// # Missing Values
//
// A value that is absent, blank or not a number is carried as a nil *float64
// through every stage. It is never replaced with zero.
package dataprocessing
