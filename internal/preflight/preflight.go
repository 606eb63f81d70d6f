package preflight

import (
	"context"
	"path/filepath"

	"gametime/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config and
// dataset folder. An empty folder uses the configured one.
func RunAll(ctx context.Context, cfg *config.Config, folder string) []Result {
	if cfg == nil {
		return nil
	}
	if folder == "" {
		folder = cfg.Dataset.Folder
	}

	var results []Result

	results = append(results, CheckConfig(cfg))
	results = append(results, CheckDirectoryAccess("Dataset folder", folder))
	if cfg.Dataset.Lock {
		results = append(results, CheckUpdateLock(folder))
	}
	results = append(results, CheckSteamFromConfig(ctx, cfg))

	if cfg.Ledger.Enabled {
		results = append(results, CheckLedger(cfg.LedgerPath(folder)))
	}
	if cfg.Metrics.TextfilePath != "" {
		results = append(results, CheckCreatableDirectory("Metrics textfile directory", filepath.Dir(cfg.Metrics.TextfilePath)))
	}
	if cfg.Offsite.Enabled {
		results = append(results, CheckOffsiteConfig(cfg.Offsite))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
