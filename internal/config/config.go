package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Dataset describes where the gametime dataset lives and how long run
// artifacts are kept.
type Dataset struct {
	Folder        string `toml:"folder"`
	FileName      string `toml:"file_name"`
	RetentionDays int    `toml:"retention_days"`
	Lock          bool   `toml:"lock"`
}

// Steam contains configuration for the Steam Web API.
type Steam struct {
	APIKey                 string `toml:"api_key"`
	BaseURL                string `toml:"base_url"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	PacingMillis           int    `toml:"pacing_millis"`
	BreakerFailures        int    `toml:"breaker_failures"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

// Game is one tracked Steam application.
type Game struct {
	Key   string `toml:"key"`
	Name  string `toml:"name"`
	AppID int64  `toml:"app_id"`
}

// ID returns the dataset representation of the application id.
func (g Game) ID() string {
	return strconv.FormatInt(g.AppID, 10)
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Ledger configures the SQLite run ledger.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <dataset folder>/runs.db
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Offsite configures the S3-compatible mirror for backups and run logs.
type Offsite struct {
	Enabled         bool   `toml:"enabled"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Prefix          string `toml:"prefix"`
	PathStyle       bool   `toml:"path_style"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Notifications configures ntfy run announcements.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for gametime.
//
// Configuration sections by subsystem:
//   - Dataset: dataset folder, file name and artifact retention
//   - Steam: Web API credentials, timeouts and pacing
//   - Games: tracked applications, in acquisition order
//   - Logging: log format and level
//   - Ledger: SQLite record of acquisition runs
//   - Metrics: Prometheus textfile export
//   - Offsite: S3 mirror of backups and run logs
//   - Notifications: ntfy announcements of finished and failed runs
type Config struct {
	Dataset Dataset `toml:"dataset"`
	Steam   Steam   `toml:"steam"`
	Games   []Game  `toml:"games"`
	Logging Logging `toml:"logging"`
	Ledger  Ledger  `toml:"ledger"`
	Metrics Metrics `toml:"metrics"`
	Offsite Offsite `toml:"offsite"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares [[games]] replaces the default list.
		cfg.Games = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Games) == 0 {
			cfg.Games = defaultGames()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gametime.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatasetPath returns the dataset CSV path inside folder, or inside the
// configured folder when folder is empty.
func (c *Config) DatasetPath(folder string) string {
	if strings.TrimSpace(folder) == "" {
		folder = c.Dataset.Folder
	}
	return filepath.Join(folder, c.Dataset.FileName)
}

// LedgerPath returns the run ledger location for the given dataset folder.
func (c *Config) LedgerPath(folder string) string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	if strings.TrimSpace(folder) == "" {
		folder = c.Dataset.Folder
	}
	return filepath.Join(folder, defaultLedgerName)
}

// Retention returns the backup/log retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Dataset.RetentionDays) * 24 * time.Hour
}

// SteamTimeout returns the per-request timeout for Steam calls.
func (c *Config) SteamTimeout() time.Duration {
	return time.Duration(c.Steam.TimeoutSeconds) * time.Second
}

// Pacing returns the minimum delay between consecutive Steam calls.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Steam.PacingMillis) * time.Millisecond
}

// Game looks up a tracked game by key, name or application id.
func (c *Config) Game(ref string) (Game, bool) {
	ref = strings.TrimSpace(ref)
	for _, g := range c.Games {
		if strings.EqualFold(g.Key, ref) || strings.EqualFold(g.Name, ref) || g.ID() == ref {
			return g, true
		}
	}
	return Game{}, false
}

// GameNames maps dataset game ids to display names.
func (c *Config) GameNames() map[string]string {
	names := make(map[string]string, len(c.Games))
	for _, g := range c.Games {
		names[g.ID()] = g.Name
	}
	return names
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
