package preflight

import (
	"context"

	"gametime/internal/config"
)

// CheckSteamFromConfig evaluates Steam status from config and connectivity.
func CheckSteamFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Steam Web API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.RequireSteam(); err != nil {
		return Result{Name: name, Detail: "Missing API key (set STEAM_API_KEY)"}
	}
	return CheckSteam(ctx, cfg.Steam.BaseURL, cfg.Steam.APIKey, cfg.SteamTimeout())
}
