package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"gametime/internal/config"
	"gametime/internal/fileutil"
	"gametime/internal/gametime"
	"gametime/internal/logging"
	"gametime/internal/steam"
)

const (
	backupDir = "backup"
	logsDir   = "logs"
	lockName  = ".gametime.lock"
)

// ErrLocked is returned when another update holds the folder lock.
var ErrLocked = errors.New("another gametime update is already running")

// ErrDuplicateAcquisition is returned when the dataset already holds an
// observation of a cohort subject at the run's acquisition time.
var ErrDuplicateAcquisition = errors.New("acquisition time already recorded")

// Cohort is the list of subjects tracked for one game.
type Cohort struct {
	Game     config.Game
	SteamIDs []string
}

// Summary describes a finished acquisition run.
type Summary struct {
	RunID       string
	Folder      string
	DatasetPath string
	BackupPath  string // empty when there was no previous dataset
	LogPath     string
	AcquiredAt  time.Time
	StartedAt   time.Time
	Duration    time.Duration
	Subjects    int
	Missing     int // fetches that returned no value
	Backfilled  int // missing fetches filled from the subject's last value
	Outcomes    map[steam.Outcome]int
	Rows        int
	NewDataset  bool
	Pruned      []string
}

// Sink receives the summary of every successful run. Sink errors are logged
// and never fail the run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, summary Summary) error
}

// Store runs acquisitions against one dataset folder.
type Store struct {
	folder    string
	fileName  string
	retention time.Duration
	lock      bool
	pacing    time.Duration
	logOpts   logging.Options

	fetcher steam.Fetcher
	logger  *slog.Logger
	now     func() time.Time
	sinks   []Sink
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPacing sets the minimum delay between consecutive fetches.
func WithPacing(d time.Duration) Option {
	return func(s *Store) { s.pacing = d }
}

// WithSinks registers run summary consumers, called in order.
func WithSinks(sinks ...Sink) Option {
	return func(s *Store) { s.sinks = append(s.sinks, sinks...) }
}

// New creates a Store for folder using the dataset and logging settings of
// cfg. An empty folder uses cfg.Dataset.Folder. fetcher may be nil for
// stores that only prune.
func New(cfg *config.Config, folder string, fetcher steam.Fetcher, logger *slog.Logger, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("dataset: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(folder) == "" {
		folder = cfg.Dataset.Folder
	}
	expanded, err := config.ExpandPath(folder)
	if err != nil {
		return nil, fmt.Errorf("dataset folder: %w", err)
	}
	s := &Store{
		folder:    expanded,
		fileName:  cfg.Dataset.FileName,
		retention: cfg.Retention(),
		lock:      cfg.Dataset.Lock,
		pacing:    cfg.Pacing(),
		logOpts:   logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format},
		fetcher:   fetcher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LockPath returns the advisory lock file guarding updates of folder.
func LockPath(folder string) string { return filepath.Join(folder, lockName) }

// Folder returns the dataset folder.
func (s *Store) Folder() string { return s.folder }

// DatasetPath returns the path of the dataset CSV.
func (s *Store) DatasetPath() string { return filepath.Join(s.folder, s.fileName) }

// Update fetches the current playtime of every cohort subject and appends it
// to the dataset. The previous file is kept under backup/ and the run is
// logged to logs/. A cancelled context aborts before the dataset is written.
func (s *Store) Update(ctx context.Context, cohorts []Cohort) (Summary, error) {
	if s.fetcher == nil {
		return Summary{}, errors.New("dataset: fetcher is required for updates")
	}
	subjects, err := validateCohorts(cohorts)
	if err != nil {
		return Summary{}, err
	}
	info, err := os.Stat(s.folder)
	if err != nil {
		return Summary{}, fmt.Errorf("dataset folder %s: %w", s.folder, err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("dataset folder %s is not a directory", s.folder)
	}
	backups := filepath.Join(s.folder, backupDir)
	logs := filepath.Join(s.folder, logsDir)
	for _, dir := range []string{backups, logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if s.lock {
		lock := flock.New(LockPath(s.folder))
		ok, err := lock.TryLock()
		if err != nil {
			return Summary{}, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return Summary{}, ErrLocked
		}
		defer func() { _ = lock.Unlock() }()
	}

	started := s.now()
	acquiredAt := started.UTC().Round(time.Second)
	summary := Summary{
		RunID:       uuid.NewString(),
		Folder:      s.folder,
		DatasetPath: s.DatasetPath(),
		LogPath:     filepath.Join(logs, ArtifactName(acquiredAt, ".log")),
		AcquiredAt:  acquiredAt,
		StartedAt:   started,
		Subjects:    subjects,
		Outcomes:    make(map[steam.Outcome]int),
	}

	runLogger, closer, err := s.openRunLog(summary.LogPath)
	if err != nil {
		return Summary{}, err
	}
	defer closer.Close()
	ctx = logging.WithRunID(ctx, summary.RunID)
	runLogger = logging.WithContext(ctx, runLogger)
	ctx = logging.ContextWithLogger(ctx, runLogger)
	logger := logging.NewComponentLogger(runLogger, "dataset")
	logger.Info("gametime update started",
		logging.String("folder", s.folder),
		logging.Int("subjects", subjects),
		logging.AcqTime(acquiredAt),
	)

	existing, exists, err := Load(summary.DatasetPath, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "dataset load failed", "dataset_invalid",
			logging.Error(err),
			logging.Hint("fix or restore the dataset from backup/ before the next run"),
		)
		return Summary{}, err
	}
	summary.NewDataset = !exists
	if err := checkAcquisitionTime(existing, cohorts, acquiredAt); err != nil {
		logging.ErrorWithContext(logger, "update rejected", "duplicate_acquisition",
			logging.Error(err),
			logging.Hint("wait at least one second between update runs"),
		)
		return Summary{}, err
	}

	incoming, err := s.fetchAll(ctx, cohorts, acquiredAt, &summary)
	if err != nil {
		return Summary{}, err
	}

	merged, err := gametime.Merge(existing, incoming)
	if err != nil {
		return Summary{}, err
	}
	offset := merged.Len() - incoming.Len()
	for i := 0; i < incoming.Len(); i++ {
		if gametime.IsMissing(incoming.Row(i).GameTime) && !gametime.IsMissing(merged.Row(offset+i).GameTime) {
			summary.Backfilled++
		}
	}
	summary.Rows = merged.Len()

	if exists {
		summary.BackupPath = filepath.Join(backups, ArtifactName(acquiredAt, ".csv"))
		if err := fileutil.CopyFile(summary.DatasetPath, summary.BackupPath); err != nil {
			return Summary{}, fmt.Errorf("backup dataset: %w", err)
		}
	}
	if err := fileutil.WriteAtomic(summary.DatasetPath, 0o644, func(w io.Writer) error {
		return gametime.WriteCSV(w, merged)
	}); err != nil {
		return Summary{}, fmt.Errorf("write dataset: %w", err)
	}

	summary.Pruned = Prune(logger, s.now(), s.retention, s.artifactDirs()...)
	summary.Duration = s.now().Sub(started)
	logger.Info("gametime update finished",
		logging.Int("rows", summary.Rows),
		logging.Int("missing", summary.Missing),
		logging.Int("backfilled", summary.Backfilled),
		logging.Int("pruned", len(summary.Pruned)),
		logging.Duration("duration", summary.Duration),
	)

	s.publish(ctx, logger, summary)
	return summary, nil
}

// Prune applies the retention window to backup/ and logs/ outside of an
// update. It returns the removed paths.
func (s *Store) Prune(ctx context.Context) []string {
	logger := logging.NewComponentLogger(logging.LoggerFromContext(ctx, s.logger), "dataset")
	return Prune(logger, s.now(), s.retention, s.artifactDirs()...)
}

func (s *Store) artifactDirs() []string {
	return []string{filepath.Join(s.folder, backupDir), filepath.Join(s.folder, logsDir)}
}

func (s *Store) openRunLog(path string) (*slog.Logger, io.Closer, error) {
	handler, closer, err := logging.NewFileHandler(path, s.logOpts)
	if err != nil {
		return nil, nil, err
	}
	return logging.TeeLogger(s.logger, handler), closer, nil
}

func (s *Store) fetchAll(ctx context.Context, cohorts []Cohort, acquiredAt time.Time, summary *Summary) (gametime.Table, error) {
	limit := rate.Inf
	if s.pacing > 0 {
		limit = rate.Every(s.pacing)
	}
	limiter := rate.NewLimiter(limit, 1)

	var rows []gametime.Observation
	for _, cohort := range cohorts {
		for _, id := range cohort.SteamIDs {
			if err := limiter.Wait(ctx); err != nil {
				return gametime.Table{}, fmt.Errorf("update aborted: %w", err)
			}
			result := s.fetcher.Fetch(ctx, id, cohort.Game.AppID)
			summary.Outcomes[result.Outcome]++
			if !result.OK() {
				summary.Missing++
			}
			rows = append(rows, gametime.Observation{
				SteamID:      id,
				GameID:       cohort.Game.ID(),
				AcqTime:      acquiredAt,
				GameTime:     result.Minutes,
				GameTimeDiff: gametime.Missing(),
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return gametime.Table{}, fmt.Errorf("update aborted: %w", err)
	}
	return gametime.NewTable(rows), nil
}

func (s *Store) publish(ctx context.Context, logger *slog.Logger, summary Summary) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, summary); err != nil {
			logging.WarnWithContext(logger, "run sink failed", "sink_failed",
				logging.String("sink", sink.Name()),
				logging.Error(err),
				logging.Hint("check the "+sink.Name()+" configuration"),
				logging.Impact("dataset was updated; only this sink missed the run"),
			)
		}
	}
}

// checkAcquisitionTime rejects a run whose timestamp would repeat a
// (steam_id, acq_time) pair already in the dataset.
func checkAcquisitionTime(existing gametime.Table, cohorts []Cohort, acquiredAt time.Time) error {
	subjects := make(map[string]struct{})
	for _, cohort := range cohorts {
		for _, id := range cohort.SteamIDs {
			subjects[id] = struct{}{}
		}
	}
	for i := 0; i < existing.Len(); i++ {
		r := existing.Row(i)
		if _, ok := subjects[r.SteamID]; ok && r.AcqTime.Equal(acquiredAt) {
			return fmt.Errorf("%w: steam_id %q already has an observation at %s",
				ErrDuplicateAcquisition, r.SteamID, gametime.FormatTimestamp(acquiredAt))
		}
	}
	return nil
}

func validateCohorts(cohorts []Cohort) (int, error) {
	owner := make(map[string]string)
	total := 0
	for _, cohort := range cohorts {
		for _, id := range cohort.SteamIDs {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(id) != id {
				return 0, gametime.Wrap(gametime.ErrInvalidArgument, "update", fmt.Sprintf("invalid steam_id %q", id), nil)
			}
			if other, ok := owner[id]; ok {
				if other != cohort.Game.ID() {
					return 0, gametime.Wrap(gametime.ErrInvalidArgument, "update", "The same 'steam_id' cannot be used for both games.", nil)
				}
				return 0, gametime.Wrap(gametime.ErrInvalidArgument, "update", fmt.Sprintf("steam_id %q is listed twice for %s", id, cohort.Game.Name), nil)
			}
			owner[id] = cohort.Game.ID()
			total++
		}
	}
	if total == 0 {
		return 0, gametime.Wrap(gametime.ErrInvalidArgument, "update", "At least one steam_id must be provided.", nil)
	}
	return total, nil
}
