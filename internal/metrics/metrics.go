package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gametime/internal/dataset"
)

// Recorder holds the run metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal       prometheus.Counter
	fetchOutcomes   *prometheus.CounterVec
	lastRunTime     prometheus.Gauge
	lastRunDuration prometheus.Gauge
	subjects        prometheus.Gauge
	missing         prometheus.Gauge
	backfilled      prometheus.Gauge
	datasetRows     prometheus.Gauge
	pruned          prometheus.Gauge
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gametime_runs_total",
			Help: "Total number of completed acquisition runs",
		}),
		fetchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gametime_fetch_outcomes_total",
			Help: "Steam fetches by outcome",
		}, []string{"outcome"}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_timestamp_seconds",
			Help: "Acquisition time of the last completed run",
		}),
		lastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_duration_seconds",
			Help: "Wall-clock duration of the last completed run",
		}),
		subjects: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_subjects",
			Help: "Subjects fetched in the last run",
		}),
		missing: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_missing",
			Help: "Fetches without a value in the last run",
		}),
		backfilled: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_backfilled",
			Help: "Missing fetches filled from the previous value in the last run",
		}),
		datasetRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_dataset_rows",
			Help: "Rows in the dataset after the last run",
		}),
		pruned: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametime_last_run_pruned_files",
			Help: "Backup and log files deleted by retention in the last run",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records summary.
func (r *Recorder) Observe(summary dataset.Summary) {
	r.runsTotal.Inc()
	for outcome, n := range summary.Outcomes {
		r.fetchOutcomes.WithLabelValues(string(outcome)).Add(float64(n))
	}
	r.lastRunTime.Set(float64(summary.AcquiredAt.Unix()))
	r.lastRunDuration.Set(summary.Duration.Seconds())
	r.subjects.Set(float64(summary.Subjects))
	r.missing.Set(float64(summary.Missing))
	r.backfilled.Set(float64(summary.Backfilled))
	r.datasetRows.Set(float64(summary.Rows))
	r.pruned.Set(float64(len(summary.Pruned)))
}

// WriteTextfile writes the current values to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("metrics: textfile path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Sink observes each run and rewrites the textfile.
type Sink struct {
	recorder *Recorder
	path     string
}

var _ dataset.Sink = (*Sink)(nil)

// NewSink returns a dataset.Sink exporting to path.
func NewSink(recorder *Recorder, path string) *Sink {
	return &Sink{recorder: recorder, path: path}
}

func (s *Sink) Name() string { return "metrics" }

// Publish records summary and writes the textfile.
func (s *Sink) Publish(_ context.Context, summary dataset.Summary) error {
	s.recorder.Observe(summary)
	return s.recorder.WriteTextfile(s.path)
}
