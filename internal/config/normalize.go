package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	c.normalizeSteam()
	c.normalizeGames()
	c.normalizeLogging()
	if err := c.normalizeSinks(); err != nil {
		return err
	}
	c.normalizeOffsite()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeDataset() error {
	if value, ok := os.LookupEnv("GAMETIME_DATASET_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Dataset.Folder = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Dataset.Folder) == "" {
		c.Dataset.Folder = defaultDatasetFolder
	}
	var err error
	if c.Dataset.Folder, err = expandPath(c.Dataset.Folder); err != nil {
		return fmt.Errorf("dataset.folder: %w", err)
	}
	c.Dataset.FileName = strings.TrimSpace(c.Dataset.FileName)
	if c.Dataset.FileName == "" {
		c.Dataset.FileName = defaultDatasetFileName
	}
	if c.Dataset.RetentionDays == 0 {
		c.Dataset.RetentionDays = defaultRetentionDays
	}
	return nil
}

func (c *Config) normalizeSteam() {
	c.Steam.APIKey = strings.TrimSpace(c.Steam.APIKey)
	if c.Steam.APIKey == "" {
		if value, ok := os.LookupEnv("STEAM_API_KEY"); ok {
			c.Steam.APIKey = strings.TrimSpace(value)
		}
	}
	c.Steam.BaseURL = strings.TrimRight(strings.TrimSpace(c.Steam.BaseURL), "/")
	if c.Steam.BaseURL == "" {
		c.Steam.BaseURL = defaultSteamBaseURL
	}
	if c.Steam.TimeoutSeconds == 0 {
		c.Steam.TimeoutSeconds = defaultSteamTimeoutSeconds
	}
	if c.Steam.BreakerFailures == 0 {
		c.Steam.BreakerFailures = defaultSteamBreakerFailures
	}
	if c.Steam.BreakerCooldownSeconds == 0 {
		c.Steam.BreakerCooldownSeconds = defaultSteamBreakerCooldown
	}
}

func (c *Config) normalizeGames() {
	for i := range c.Games {
		g := &c.Games[i]
		g.Key = strings.ToLower(strings.TrimSpace(g.Key))
		g.Name = strings.TrimSpace(g.Name)
		if g.Key == "" {
			g.Key = strings.ToLower(g.Name)
		}
		if g.Name == "" {
			g.Name = g.ID()
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSinks() error {
	var err error
	if c.Ledger.Path, err = expandPath(strings.TrimSpace(c.Ledger.Path)); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOffsite() {
	c.Offsite.Bucket = strings.TrimSpace(c.Offsite.Bucket)
	if c.Offsite.Bucket == "" {
		if value, ok := os.LookupEnv("GAMETIME_OFFSITE_BUCKET"); ok {
			c.Offsite.Bucket = strings.TrimSpace(value)
		}
	}
	c.Offsite.Region = strings.TrimSpace(c.Offsite.Region)
	if c.Offsite.Region == "" {
		c.Offsite.Region = defaultOffsiteRegion
	}
	c.Offsite.Endpoint = strings.TrimSpace(c.Offsite.Endpoint)
	c.Offsite.Prefix = strings.Trim(strings.TrimSpace(c.Offsite.Prefix), "/")
	if c.Offsite.AccessKeyID == "" {
		if value, ok := os.LookupEnv("GAMETIME_OFFSITE_ACCESS_KEY_ID"); ok {
			c.Offsite.AccessKeyID = strings.TrimSpace(value)
		}
	}
	if c.Offsite.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("GAMETIME_OFFSITE_SECRET_ACCESS_KEY"); ok {
			c.Offsite.SecretAccessKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
