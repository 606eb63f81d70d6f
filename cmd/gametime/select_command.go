package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gametime/internal/dataset"
	"gametime/internal/gametime"
	"gametime/internal/textutil"
)

type selectOptions struct {
	idsFile string
	start   string
	end     string
	freq    string
	rename  bool
	mapping string
	daily   bool
	format  string
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var opts selectOptions

	cmd := &cobra.Command{
		Use:   "select [folder]",
		Short: "Select dataset rows by subject and time window",
		Long: "Print dataset rows restricted to the subjects of --ids-file and the closed interval\n" +
			"[--start, --end]. --freq resamples each grid point to the nearest acquisitions and\n" +
			"recomputes the deltas. --daily prints per-day totals instead of observations.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			outFormat, err := resolveFormat(cmd, opts.format)
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
				return errors.New("no dataset to select from; run 'gametime update' first")
			}

			if opts.idsFile != "" {
				ids, err := readIDFile(opts.idsFile)
				if err != nil {
					return err
				}
				if table, err = gametime.SelectIDs(table, ids); err != nil {
					return err
				}
			}
			window, err := opts.window()
			if err != nil {
				return err
			}
			if window.Start != nil || window.End != nil || window.Freq != 0 {
				if table, err = gametime.SelectTime(table, window, logger); err != nil {
					return err
				}
			}
			if opts.rename || opts.mapping != "" {
				subjects := gametime.Mapping{}
				if opts.mapping != "" {
					if subjects, err = readSubjectMapping(opts.mapping); err != nil {
						return err
					}
				}
				if table, err = gametime.Rename(table, cfg.GameNames(), subjects, logger); err != nil {
					return err
				}
			}

			if opts.daily {
				return renderDailyTotals(cmd, outFormat, gametime.DailyTotals(table))
			}
			return renderObservations(cmd, outFormat, table)
		},
	}

	cmd.Flags().StringVar(&opts.idsFile, "ids-file", "", "File with one steam id per line to keep")
	cmd.Flags().StringVar(&opts.start, "start", "", "Window start (e.g. 2024-05-01 or 2024-05-01 10:30)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Window end, inclusive")
	cmd.Flags().StringVar(&opts.freq, "freq", "", "Resampling frequency (e.g. 6h, 1D, 1W)")
	cmd.Flags().BoolVar(&opts.rename, "rename", false, "Show game names instead of app ids")
	cmd.Flags().StringVar(&opts.mapping, "mapping", "", "TOML file with a [subjects] table of steam_id = \"label\" (implies --rename)")
	cmd.Flags().BoolVar(&opts.daily, "daily", false, "Print per-subject daily totals")
	addFormatFlag(cmd, &opts.format)
	return cmd
}

func (o selectOptions) window() (gametime.Window, error) {
	var w gametime.Window
	if strings.TrimSpace(o.start) != "" {
		ts, err := gametime.ParseTime(o.start)
		if err != nil {
			return w, err
		}
		w.Start = &ts
	}
	if strings.TrimSpace(o.end) != "" {
		ts, err := gametime.ParseTime(o.end)
		if err != nil {
			return w, err
		}
		w.End = &ts
	}
	if strings.TrimSpace(o.freq) != "" {
		d, err := gametime.ParseFreq(o.freq)
		if err != nil {
			return w, err
		}
		w.Freq = d
	}
	return w, nil
}

type observationView struct {
	SteamID      string    `json:"steam_id"`
	GameID       string    `json:"game_id"`
	AcqTime      time.Time `json:"acq_time"`
	GameTime     *float64  `json:"game_time"`
	GameTimeDiff *float64  `json:"game_time_diff"`
}

var observationColumns = []string{"steam_id", "game_id", "acq_time", "game_time", "game_time_diff"}

func renderObservations(cmd *cobra.Command, format outputFormat, table gametime.Table) error {
	switch format {
	case formatCSV:
		return gametime.WriteCSV(cmd.OutOrStdout(), table)
	case formatJSON:
		views := make([]observationView, 0, table.Len())
		for _, r := range table.Rows() {
			views = append(views, observationView{
				SteamID:      r.SteamID,
				GameID:       r.GameID,
				AcqTime:      r.AcqTime,
				GameTime:     optionalFloat(r.GameTime),
				GameTimeDiff: optionalFloat(r.GameTimeDiff),
			})
		}
		return writeJSON(cmd, views)
	}
	rows := make([][]string, 0, table.Len())
	for _, r := range table.Rows() {
		rows = append(rows, []string{
			r.SteamID,
			r.GameID,
			gametime.FormatTimestamp(r.AcqTime),
			formatMinutes(r.GameTime),
			formatMinutes(r.GameTimeDiff),
		})
	}
	return writeRecords(cmd, format, observationColumns, columnLabels(observationColumns), rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight})
}

type dailyView struct {
	SteamID string  `json:"steam_id"`
	GameID  string  `json:"game_id"`
	Day     string  `json:"day"`
	Minutes float64 `json:"minutes"`
}

func renderDailyTotals(cmd *cobra.Command, format outputFormat, totals []gametime.DailyTotal) error {
	views := make([]dailyView, 0, len(totals))
	for _, t := range totals {
		views = append(views, dailyView{SteamID: t.SteamID, GameID: t.GameID, Day: t.Day.Format("2006-01-02"), Minutes: t.Minutes})
	}
	if format == formatJSON {
		return writeJSON(cmd, views)
	}
	headers := []string{"steam_id", "game_id", "day", "daily_total"}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.SteamID, v.GameID, v.Day, formatMinutes(v.Minutes)})
	}
	return writeRecords(cmd, format, headers, columnLabels(headers), rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

func columnLabels(columns []string) []string {
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = textutil.ColumnLabel(c)
	}
	return labels
}

func formatMinutes(v float64) string {
	if gametime.IsMissing(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
