package offsite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"gametime/internal/dataset"
	"gametime/internal/logging"
	"gametime/internal/textutil"
)

// Mirror uploads the artifacts of each run. It implements dataset.Sink.
type Mirror struct {
	uploader Uploader
	prefix   string
	logger   *slog.Logger
}

var _ dataset.Sink = (*Mirror)(nil)

// NewMirror returns a Mirror writing under prefix.
func NewMirror(uploader Uploader, prefix string, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mirror{uploader: uploader, prefix: textutil.KeyPrefix(prefix), logger: logger}
}

func (m *Mirror) Name() string { return "offsite" }

// Keys maps each local artifact of summary to its object key. The dataset is
// stored as a timestamped snapshot.
func (m *Mirror) Keys(summary dataset.Summary) map[string]string {
	keys := map[string]string{
		summary.DatasetPath: m.key("dataset", dataset.ArtifactName(summary.AcquiredAt, ".csv")),
	}
	if summary.BackupPath != "" {
		keys[summary.BackupPath] = m.key("backup", filepath.Base(summary.BackupPath))
	}
	if summary.LogPath != "" {
		keys[summary.LogPath] = m.key("logs", filepath.Base(summary.LogPath))
	}
	return keys
}

func (m *Mirror) key(kind, name string) string {
	return path.Join(m.prefix, kind, textutil.SanitizeFileName(name))
}

// Publish uploads the run artifacts. Every file is attempted; the errors are
// joined.
func (m *Mirror) Publish(ctx context.Context, summary dataset.Summary) error {
	logger := logging.NewComponentLogger(logging.LoggerFromContext(ctx, m.logger), "offsite")
	var errs []error
	for _, local := range []string{summary.DatasetPath, summary.BackupPath, summary.LogPath} {
		if local == "" {
			continue
		}
		key := m.Keys(summary)[local]
		if err := m.upload(ctx, local, key); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("artifact mirrored", logging.String("file", local), logging.String("key", key))
	}
	return errors.Join(errs...)
}

func (m *Mirror) upload(ctx context.Context, local, key string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}
	defer f.Close()
	contentType := "text/csv"
	if filepath.Ext(local) == ".log" {
		contentType = "text/plain"
	}
	return m.uploader.Upload(ctx, key, f, contentType)
}
