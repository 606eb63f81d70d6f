package config

const (
	defaultConfigPath           = "~/.config/gametime/config.toml"
	defaultDatasetFolder        = "~/.local/share/gametime"
	defaultDatasetFileName      = "gametime.csv"
	defaultRetentionDays        = 14
	defaultLedgerName           = "runs.db"
	defaultSteamBaseURL         = "http://api.steampowered.com"
	defaultSteamTimeoutSeconds  = 10
	defaultSteamPacingMillis    = 1000
	defaultSteamBreakerFailures = 5
	defaultSteamBreakerCooldown = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultOffsiteRegion        = "us-east-1"
	defaultOffsitePrefix        = "gametime"
	defaultNtfyTimeoutSeconds   = 10
)

const (
	ecorescueAppID int64 = 2163350
	bejeweledAppID int64 = 78000
)

func defaultGames() []Game {
	return []Game{
		{Key: "ecorescue", Name: "Ecorescue", AppID: ecorescueAppID},
		{Key: "bejeweled", Name: "Bejeweled", AppID: bejeweledAppID},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Dataset: Dataset{
			Folder:        defaultDatasetFolder,
			FileName:      defaultDatasetFileName,
			RetentionDays: defaultRetentionDays,
			Lock:          true,
		},
		Steam: Steam{
			BaseURL:                defaultSteamBaseURL,
			TimeoutSeconds:         defaultSteamTimeoutSeconds,
			PacingMillis:           defaultSteamPacingMillis,
			BreakerFailures:        defaultSteamBreakerFailures,
			BreakerCooldownSeconds: defaultSteamBreakerCooldown,
		},
		Games: defaultGames(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Offsite: Offsite{
			Region: defaultOffsiteRegion,
			Prefix: defaultOffsitePrefix,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
