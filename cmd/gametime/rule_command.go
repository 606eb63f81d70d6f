package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gametime/internal/dataset"
	"gametime/internal/gametime"
)

func newRuleCommand(ctx *commandContext) *cobra.Command {
	var (
		startsFile string
		rule       string
		amount     float64
		allWeeks   bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "rule [folder]",
		Short: "List subjects whose weekly gametime satisfies a threshold",
		Long: "Evaluate each subject of --starts from its start date, week by week, on daily\n" +
			"resampled data. With --all-weeks every completed week must satisfy the rule;\n" +
			"otherwise a single week is enough. The starts file holds '<steam_id>,<date>' lines.",
		Example: "  gametime rule --starts starts.csv --rule '>' --amount 1560 --all-weeks",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			outFormat, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			comparison, err := gametime.ParseComparison(rule)
			if err != nil {
				return err
			}
			if startsFile == "" {
				return errors.New("--starts is required")
			}
			starts, err := readStartsFile(startsFile)
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
			table, exists, err := dataset.Load(cfg.DatasetPath(folder), logger)
			if err != nil {
				return err
			}
			if !exists {
				return errors.New("no dataset to evaluate; run 'gametime update' first")
			}

			query := gametime.RuleQuery{Rule: comparison, Amount: amount, AllWeeks: allWeeks}
			ids, err := gametime.SelectByRule(table, starts, query, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d subjects satisfy %s %s minutes in %s\n",
				len(ids), len(starts), comparison, strconv.FormatFloat(amount, 'f', -1, 64), weeksLabel(allWeeks))

			if outFormat == formatJSON {
				if ids == nil {
					ids = []string{}
				}
				return writeJSON(cmd, ids)
			}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id})
			}
			headers := []string{"steam_id"}
			return writeRecords(cmd, outFormat, headers, columnLabels(headers), rows, nil)
		},
	}

	cmd.Flags().StringVar(&startsFile, "starts", "", "File of '<steam_id>,<start date>' lines")
	cmd.Flags().StringVar(&rule, "rule", "", "Comparison: <, <=, > or >=")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Weekly gametime threshold in minutes")
	cmd.Flags().BoolVar(&allWeeks, "all-weeks", false, "Require every completed week to satisfy the rule")
	addFormatFlag(cmd, &format)
	return cmd
}

func weeksLabel(all bool) string {
	if all {
		return "every completed week"
	}
	return "at least one week"
}
