package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gametime/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "runs [folder]",
		Short: "List recorded acquisition runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return errors.New("run ledger is disabled (set ledger.enabled = true)")
			}
			outFormat, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			folder, err := ctx.folder(args)
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg.LedgerPath(folder))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if outFormat == formatJSON {
				if runs == nil {
					runs = []runlog.Run{}
				}
				return writeJSON(cmd, runs)
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.AcquiredAt.UTC().Format(time.RFC3339),
					run.ID,
					strconv.Itoa(run.Subjects),
					strconv.Itoa(run.Missing),
					strconv.Itoa(run.Backfilled),
					strconv.Itoa(run.Rows),
					run.Duration.Round(time.Millisecond).String(),
				})
			}
			headers := []string{"acq_time", "run_id", "subjects", "missing", "backfilled", "rows", "duration"}
			labels := []string{"Acquired", "Run ID", "Subjects", "Missing", "Backfilled", "Rows", "Duration"}
			return writeRecords(cmd, outFormat, headers, labels, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	addFormatFlag(cmd, &format)
	return cmd
}
