package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ProcessedCSV is a small processed dataset: China 2000-2002 and the World
// aggregate 2000-2002 plus 2005, with GDP missing for the World.
const ProcessedCSV = `Country,Year,Emissions,GDP_per_capita,Renewable_Share,Energy_per_capita,Population,Emissions_per_GDP,Emissions_per_capita,Global_Temperature
China,2000,1.0,10.0,5.0,100.0,,,,0.4
China,2001,2.0,20.0,4.0,200.0,,,,0.5
China,2002,3.0,30.0,3.0,300.0,,,,0.6
World,2000,10.0,,7.0,1000.0,,,,0.4
World,2001,11.0,,7.0,1000.0,,,,0.5
World,2002,12.0,,7.0,1000.0,,,,0.6
World,2005,13.0,,7.0,1000.0,,,,0.7
`

// ProcessedRows is the number of records in ProcessedCSV
const ProcessedRows = 7

// WriteProcessedCSV writes ProcessedCSV to path, creating its directory
func WriteProcessedCSV(t testing.TB, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(ProcessedCSV), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// TempProcessedCSV writes ProcessedCSV into a fresh temp directory
func TempProcessedCSV(t testing.TB) string {
	t.Helper()
	return WriteProcessedCSV(t, filepath.Join(t.TempDir(), "processed_data.csv"))
}
