package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
//
// The Steam API key is not required here because selection and
// randomization commands never call Steam; see RequireSteam.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateSteam(); err != nil {
		return err
	}
	if err := c.validateGames(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateOffsite(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

// RequireSteam reports whether the Steam credentials needed for acquisition are present.
func (c *Config) RequireSteam() error {
	if c.Steam.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("steam.api_key is required. Set STEAM_API_KEY env var or edit %s (create with 'gametime config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateDataset() error {
	if c.Dataset.RetentionDays < 0 {
		return errors.New("dataset.retention_days must be positive")
	}
	if strings.ContainsAny(c.Dataset.FileName, `/\`) {
		return errors.New("dataset.file_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateSteam() error {
	if !strings.HasPrefix(c.Steam.BaseURL, "http://") && !strings.HasPrefix(c.Steam.BaseURL, "https://") {
		return fmt.Errorf("steam.base_url must be an http(s) URL, got %q", c.Steam.BaseURL)
	}
	if c.Steam.TimeoutSeconds <= 0 {
		return errors.New("steam.timeout_seconds must be positive")
	}
	if c.Steam.PacingMillis < 0 {
		return errors.New("steam.pacing_millis must not be negative")
	}
	if c.Steam.BreakerFailures <= 0 {
		return errors.New("steam.breaker_failures must be positive")
	}
	if c.Steam.BreakerCooldownSeconds <= 0 {
		return errors.New("steam.breaker_cooldown_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGames() error {
	if len(c.Games) == 0 {
		return errors.New("at least one [[games]] entry must be configured")
	}
	keys := make(map[string]struct{}, len(c.Games))
	ids := make(map[int64]struct{}, len(c.Games))
	for _, g := range c.Games {
		if g.AppID <= 0 {
			return fmt.Errorf("games.%s: app_id must be positive", g.Key)
		}
		if _, dup := keys[g.Key]; dup {
			return fmt.Errorf("games: duplicate key %q", g.Key)
		}
		if _, dup := ids[g.AppID]; dup {
			return fmt.Errorf("games: duplicate app_id %d", g.AppID)
		}
		keys[g.Key] = struct{}{}
		ids[g.AppID] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateOffsite() error {
	if !c.Offsite.Enabled {
		return nil
	}
	if c.Offsite.Bucket == "" {
		return errors.New("offsite.bucket must be set when offsite.enabled is true")
	}
	if (c.Offsite.AccessKeyID == "") != (c.Offsite.SecretAccessKey == "") {
		return errors.New("offsite.access_key_id and offsite.secret_access_key must be set together")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full topic URL, got %q", topic)
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	return nil
}
