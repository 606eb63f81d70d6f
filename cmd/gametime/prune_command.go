package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gametime/internal/dataset"
	"gametime/internal/logging"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune [folder]",
		Short: "Delete backups and run logs older than the retention window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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
			store, err := dataset.New(cfg, folder, nil, logger)
			if err != nil {
				return err
			}
			removed := store.Prune(logging.ContextWithLogger(cmd.Context(), logger))
			out := cmd.OutOrStdout()
			for _, path := range removed {
				fmt.Fprintln(out, path)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d file(s) older than %d days\n", len(removed), cfg.Dataset.RetentionDays)
			return nil
		},
	}
}
