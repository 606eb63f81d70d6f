package runlog

import (
	"context"

	"gametime/internal/dataset"
)

// Sink records dataset runs into the ledger.
type Sink struct {
	store *Store
}

var _ dataset.Sink = (*Sink)(nil)

// NewSink wraps store as a dataset.Sink.
func NewSink(store *Store) *Sink { return &Sink{store: store} }

func (s *Sink) Name() string { return "ledger" }

// Publish records summary.
func (s *Sink) Publish(ctx context.Context, summary dataset.Summary) error {
	return s.store.Record(ctx, FromSummary(summary))
}

// FromSummary converts a run summary into a ledger row.
func FromSummary(summary dataset.Summary) Run {
	outcomes := make(map[string]int, len(summary.Outcomes))
	for outcome, n := range summary.Outcomes {
		outcomes[string(outcome)] = n
	}
	return Run{
		ID:          summary.RunID,
		StartedAt:   summary.StartedAt,
		AcquiredAt:  summary.AcquiredAt,
		Folder:      summary.Folder,
		DatasetPath: summary.DatasetPath,
		BackupPath:  summary.BackupPath,
		LogPath:     summary.LogPath,
		Subjects:    summary.Subjects,
		Missing:     summary.Missing,
		Backfilled:  summary.Backfilled,
		Rows:        summary.Rows,
		NewDataset:  summary.NewDataset,
		Pruned:      len(summary.Pruned),
		Duration:    summary.Duration,
		Outcomes:    outcomes,
	}
}
