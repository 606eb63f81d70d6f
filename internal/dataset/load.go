package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gametime/internal/gametime"
	"gametime/internal/logging"
)

// Load reads the dataset at path. An absent or empty file yields an empty
// table and a warning; exists reports whether the file was on disk.
func Load(path string, logger *slog.Logger) (table gametime.Table, exists bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "No gametime dataset found. Creating a new one.", "dataset_absent",
			logging.String("path", path),
			logging.Hint("expected on the first run; otherwise check dataset.folder"),
			logging.Impact("a new dataset is started and no backup is made"),
		)
		return gametime.Table{}, false, nil
	}
	if err != nil {
		return gametime.Table{}, false, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	table, err = gametime.ReadCSV(f)
	if errors.Is(err, gametime.ErrEmptyDataset) {
		logging.WarnWithContext(logger, "Empty gametime dataset.", "dataset_empty",
			logging.String("path", path),
			logging.Hint("restore the latest file from backup/ if data was lost"),
			logging.Impact("the dataset is rebuilt from this run only"),
		)
		return gametime.Table{}, true, nil
	}
	if err != nil {
		return gametime.Table{}, true, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return table, true, nil
}
