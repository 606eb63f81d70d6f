package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gametime/internal/config"
	"gametime/internal/dataset"
	"gametime/internal/logging"
	"gametime/internal/metrics"
	"gametime/internal/notifications"
	"gametime/internal/offsite"
	"gametime/internal/preflight"
	"gametime/internal/runlog"
	"gametime/internal/steam"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var idsFlags []string
	var runPreflight bool
	var format string

	cmd := &cobra.Command{
		Use:   "update [folder]",
		Short: "Fetch current gametime for every subject and append it to the dataset",
		Long: "Fetch the total playtime of every subject from the Steam Web API and append one row per\n" +
			"subject to the dataset. The previous dataset is copied to backup/ and the run is logged\n" +
			"to logs/. Subjects are given per game with --ids <game>=<file>, one steam id per line.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireSteam(); err != nil {
				return err
			}
			outFormat, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			folder, err := ctx.folder(args)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			cohorts, err := parseCohorts(cfg, idsFlags)
			if err != nil {
				return err
			}

			if runPreflight {
				results := preflight.RunAll(cmd.Context(), cfg, folder)
				if preflight.Failed(results) {
					fmt.Fprintln(cmd.ErrOrStderr(), renderPreflight(results))
					return errors.New("preflight checks failed; run 'gametime doctor' for details")
				}
			}

			client, err := steam.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			sinks, closeSinks, err := buildSinks(cmd.Context(), cfg, folder, logger, notifier)
			if err != nil {
				return err
			}
			defer closeSinks()

			store, err := dataset.New(cfg, folder, client, logger, dataset.WithSinks(sinks...))
			if err != nil {
				return err
			}
			summary, err := store.Update(cmd.Context(), cohorts)
			if err != nil {
				if nerr := notifier.NotifyRunFailed(context.WithoutCancel(cmd.Context()), store.Folder(), err); nerr != nil {
					logging.WarnWithContext(logger, "failure notification not sent", "notification_failed",
						logging.Error(nerr),
						logging.Hint("check notifications.ntfy_topic"),
					)
				}
				return err
			}
			return renderSummary(cmd, outFormat, summary)
		},
	}

	cmd.Flags().StringArrayVar(&idsFlags, "ids", nil, "Subject id file for a game as <game>=<file> (repeatable)")
	cmd.Flags().BoolVar(&runPreflight, "preflight", false, "Run the doctor checks before fetching")
	addFormatFlag(cmd, &format)
	return cmd
}

// parseCohorts resolves --ids flags into cohorts ordered like the configured
// games.
func parseCohorts(cfg *config.Config, flags []string) ([]dataset.Cohort, error) {
	if len(flags) == 0 {
		return nil, errors.New("at least one --ids <game>=<file> is required")
	}
	byGame := make(map[string]dataset.Cohort, len(flags))
	for _, flag := range flags {
		ref, path, ok := strings.Cut(flag, "=")
		if !ok || strings.TrimSpace(ref) == "" || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("invalid --ids %q: expected <game>=<file>", flag)
		}
		game, found := cfg.Game(ref)
		if !found {
			return nil, fmt.Errorf("unknown game %q (configured: %s)", ref, strings.Join(gameKeys(cfg), ", "))
		}
		if _, dup := byGame[game.Key]; dup {
			return nil, fmt.Errorf("game %s given more than once", game.Name)
		}
		ids, err := readIDFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		byGame[game.Key] = dataset.Cohort{Game: game, SteamIDs: ids}
	}
	cohorts := make([]dataset.Cohort, 0, len(byGame))
	for _, game := range cfg.Games {
		if cohort, ok := byGame[game.Key]; ok {
			cohorts = append(cohorts, cohort)
		}
	}
	return cohorts, nil
}

func gameKeys(cfg *config.Config) []string {
	keys := make([]string, 0, len(cfg.Games))
	for _, g := range cfg.Games {
		keys = append(keys, g.Key)
	}
	return keys
}

// buildSinks opens the optional run consumers enabled in cfg. The returned
// func releases them.
func buildSinks(ctx context.Context, cfg *config.Config, folder string, logger *slog.Logger, notifier notifications.Service) ([]dataset.Sink, func(), error) {
	var sinks []dataset.Sink
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Ledger.Enabled {
		store, err := runlog.Open(cfg.LedgerPath(folder))
		if err != nil {
			return nil, nil, fmt.Errorf("open run ledger: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		sinks = append(sinks, runlog.NewSink(store))
	}
	if cfg.Metrics.TextfilePath != "" {
		sinks = append(sinks, metrics.NewSink(metrics.NewRecorder(), cfg.Metrics.TextfilePath))
	}
	if cfg.Offsite.Enabled {
		uploader, err := offsite.NewS3Uploader(ctx, cfg.Offsite)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("offsite mirror: %w", err)
		}
		sinks = append(sinks, offsite.NewMirror(uploader, cfg.Offsite.Prefix, logger))
	}
	if cfg.Notifications.NtfyTopic != "" {
		sinks = append(sinks, notifications.NewSink(notifier))
	}
	return sinks, closeAll, nil
}

type summaryView struct {
	RunID      string         `json:"run_id"`
	Dataset    string         `json:"dataset"`
	AcquiredAt time.Time      `json:"acq_time"`
	Subjects   int            `json:"subjects"`
	Missing    int            `json:"missing"`
	Backfilled int            `json:"backfilled"`
	Rows       int            `json:"rows"`
	NewDataset bool           `json:"new_dataset"`
	Backup     string         `json:"backup,omitempty"`
	Log        string         `json:"log"`
	Pruned     []string       `json:"pruned"`
	DurationMS int64          `json:"duration_ms"`
	Outcomes   map[string]int `json:"outcomes"`
}

func renderSummary(cmd *cobra.Command, format outputFormat, summary dataset.Summary) error {
	outcomes := make(map[string]int, len(summary.Outcomes))
	for outcome, n := range summary.Outcomes {
		outcomes[string(outcome)] = n
	}
	view := summaryView{
		RunID:      summary.RunID,
		Dataset:    summary.DatasetPath,
		AcquiredAt: summary.AcquiredAt,
		Subjects:   summary.Subjects,
		Missing:    summary.Missing,
		Backfilled: summary.Backfilled,
		Rows:       summary.Rows,
		NewDataset: summary.NewDataset,
		Backup:     summary.BackupPath,
		Log:        summary.LogPath,
		Pruned:     summary.Pruned,
		DurationMS: summary.Duration.Milliseconds(),
		Outcomes:   outcomes,
	}
	if view.Pruned == nil {
		view.Pruned = []string{}
	}
	if format == formatJSON {
		return writeJSON(cmd, view)
	}

	pairs := [][2]string{
		{"Run ID", view.RunID},
		{"Dataset", view.Dataset},
		{"Acquisition time", view.AcquiredAt.Format(time.RFC3339)},
		{"Subjects", strconv.Itoa(view.Subjects)},
		{"Missing", strconv.Itoa(view.Missing)},
		{"Backfilled", strconv.Itoa(view.Backfilled)},
		{"Rows", strconv.Itoa(view.Rows)},
		{"New dataset", yesNo(view.NewDataset)},
		{"Backup", view.Backup},
		{"Run log", view.Log},
		{"Pruned files", strconv.Itoa(len(view.Pruned))},
		{"Duration", summary.Duration.Round(time.Millisecond).String()},
	}
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pairs = append(pairs, [2]string{"Fetch " + name, strconv.Itoa(outcomes[name])})
	}

	if format == formatTable {
		fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(pairs))
		return nil
	}
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return writeCSV(cmd, []string{"field", "value"}, rows)
}
