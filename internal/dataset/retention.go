package dataset

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gametime/internal/logging"
)

const (
	artifactPrefix = "gametime_"
	stampLayout    = "20060102-150405"
)

// ArtifactName returns the backup or log file name for a run started at ts.
func ArtifactName(ts time.Time, ext string) string {
	return artifactPrefix + ts.UTC().Format(stampLayout) + ext
}

// ParseArtifactName extracts the UTC run time from a backup or log file name.
func ParseArtifactName(name string) (time.Time, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.TrimPrefix(stem, artifactPrefix)
	ts, err := time.ParseInLocation(stampLayout, stem, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Prune deletes files in dirs whose name encodes a run time at least
// retention before now. Files with other names are kept and reported. A
// non-positive retention disables pruning. It returns the removed paths.
func Prune(logger *slog.Logger, now time.Time, retention time.Duration, dirs ...string) []string {
	if retention <= 0 {
		return nil
	}
	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				logging.WarnWithContext(logger, "retention scan failed", "retention_scan_failed",
					logging.String("dir", dir),
					logging.Error(err),
					logging.Hint("check folder permissions"),
					logging.Impact("old files in this folder are kept"),
				)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			ts, ok := ParseArtifactName(name)
			if !ok {
				logging.WarnWithContext(logger, "Skipping file '"+name+"' with unexpected name format.", "retention_unexpected_name",
					logging.String("dir", dir),
					logging.Hint("only gametime_YYYYmmdd-HHMMSS files are managed here"),
					logging.Impact("file is kept"),
				)
				continue
			}
			if now.Sub(ts) < retention {
				continue
			}
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				logging.WarnWithContext(logger, "retention remove failed; file remains", "retention_remove_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.Hint("check file permissions and folder ownership"),
					logging.Impact("old file remains on disk"),
				)
				continue
			}
			if logger != nil {
				logger.Info("removed old file",
					logging.String("path", path),
					logging.String(logging.FieldEventType, "retention_pruned"),
				)
			}
			removed = append(removed, path)
		}
	}
	return removed
}
