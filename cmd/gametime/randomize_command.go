package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"gametime/internal/randomization"
)

func newRandomizeCommand(ctx *commandContext) *cobra.Command {
	var (
		groupFlags []string
		value      float64
		strategy   string
		seed       uint64
		format     string
	)

	cmd := &cobra.Command{
		Use:   "randomize",
		Short: "Choose the group for a newly enrolled subject",
		Long: "Assign a subject with covariate --value to one of the groups given with --group.\n" +
			"Empty groups are filled first, then the smallest group; ties between equally\n" +
			"small groups are broken by the strategy objective. Pass --group \"\" for an empty group.",
		Example: "  gametime randomize --group 1,2,3 --group 35,36,37 --value 4",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			if len(groupFlags) == 0 {
				return errors.New("at least one --group is required")
			}
			if !cmd.Flags().Changed("value") {
				return errors.New("--value is required")
			}
			groups := make([][]float64, 0, len(groupFlags))
			for _, flag := range groupFlags {
				group, err := parseGroup(flag)
				if err != nil {
					return err
				}
				groups = append(groups, group)
			}
			parsed, err := randomization.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			opts := []randomization.Option{randomization.WithStrategy(parsed), randomization.WithLogger(logger)}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, randomization.WithRand(rand.New(rand.NewPCG(seed, seed))))
			}

			decision, err := randomization.New(opts...).Decide(groups, value)
			if err != nil {
				return err
			}
			return renderDecision(cmd, outFormat, groups, decision)
		},
	}

	cmd.Flags().StringArrayVarP(&groupFlags, "group", "g", nil, "Comma-separated covariate values of one existing group (repeatable)")
	cmd.Flags().Float64Var(&value, "value", 0, "Covariate value of the new subject")
	cmd.Flags().StringVar(&strategy, "strategy", string(randomization.StrategyMinVariance), "Tie-break objective: minvar or average (legacy)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the choice among empty groups")
	addFormatFlag(cmd, &format)
	return cmd
}

type decisionView struct {
	Group  int        `json:"group"`
	Reason string     `json:"reason"`
	Scores []*float64 `json:"scores,omitempty"`
}

// renderDecision reports groups numbered from 1 in --group order.
func renderDecision(cmd *cobra.Command, format outputFormat, groups [][]float64, d randomization.Decision) error {
	view := decisionView{Group: d.Group + 1, Reason: string(d.Reason)}
	for _, s := range d.Scores {
		view.Scores = append(view.Scores, optionalFloat(s))
	}
	switch format {
	case formatJSON:
		return writeJSON(cmd, view)
	case formatCSV:
		return writeCSV(cmd, []string{"group", "reason"}, [][]string{{strconv.Itoa(view.Group), view.Reason}})
	}

	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		score := ""
		if i < len(d.Scores) {
			score = formatMinutes(d.Scores[i])
		}
		marker := ""
		if i == d.Group {
			marker = "<-"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(len(g)), groupMean(g), score, marker})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Group", "Size", "Mean", "Score", ""}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft}))
	fmt.Fprintf(out, "Assign to group %d (%s)\n", view.Group, view.Reason)
	return nil
}

func groupMean(g []float64) string {
	if len(g) == 0 {
		return ""
	}
	sum := 0.0
	for _, v := range g {
		sum += v
	}
	return formatMinutes(sum / float64(len(g)))
}
