package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gametime/internal/gametime"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteDataset encodes table as a dataset CSV at path.
func WriteDataset(t testing.TB, path string, table gametime.Table) {
	t.Helper()
	data, err := gametime.EncodeCSV(table)
	if err != nil {
		t.Fatalf("encode dataset: %v", err)
	}
	WriteFile(t, path, string(data))
}

// ReadDataset decodes the dataset CSV at path.
func ReadDataset(t testing.TB, path string) gametime.Table {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	defer f.Close()
	table, err := gametime.ReadCSV(f)
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	return table
}

// TouchRunArtifact creates an empty backup or log file named after ts,
// e.g. gametime_20240101-120000.csv.
func TouchRunArtifact(t testing.TB, dir string, ts time.Time, ext string) string {
	t.Helper()
	path := filepath.Join(dir, "gametime_"+ts.UTC().Format("20060102-150405")+ext)
	WriteFile(t, path, "")
	return path
}
