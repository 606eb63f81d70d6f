package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"gametime/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique dataset folder per test.
// Pacing is disabled and the ledger is stored under the temp dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Steam.APIKey = "test"
	cfgVal.Steam.PacingMillis = 0
	cfgVal.Dataset.Folder = filepath.Join(base, "dataset")
	cfgVal.Ledger.Path = filepath.Join(base, "runs.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSteamBaseURL points the Steam client at a test server.
func WithSteamBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Steam.BaseURL = url
	}
}

// WithDatasetFolder creates and uses a named folder under the test base dir.
func WithDatasetFolder(name string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("create dataset folder: %v", err)
		}
		b.cfg.Dataset.Folder = dir
	}
}

// WithRetentionDays overrides the artifact retention window.
func WithRetentionDays(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.RetentionDays = days
	}
}

// BaseDir returns the temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Ledger.Path)
}
