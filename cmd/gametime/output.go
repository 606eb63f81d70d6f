package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gametime/internal/gametime"
)

type outputFormat string

const (
	formatAuto  outputFormat = "auto"
	formatTable outputFormat = "table"
	formatCSV   outputFormat = "csv"
	formatJSON  outputFormat = "json"
)

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", string(formatAuto), "Output format: auto, table, csv or json")
}

// resolveFormat turns "auto" into a table on terminals and CSV otherwise.
func resolveFormat(cmd *cobra.Command, value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatTable, formatCSV, formatJSON:
		return f, nil
	case formatAuto, "":
		if isTerminal(cmd.OutOrStdout()) {
			return formatTable, nil
		}
		return formatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use auto, table, csv or json)", value)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(cmd *cobra.Command, headers []string, rows [][]string) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// writeRecords renders headers and rows in the table or CSV layout. JSON
// callers encode their own structures.
func writeRecords(cmd *cobra.Command, format outputFormat, headers, labels []string, rows [][]string, aligns []columnAlignment) error {
	if format == formatTable {
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(labels, rows, aligns))
		return nil
	}
	return writeCSV(cmd, headers, rows)
}

// optionalFloat maps missing values to JSON null.
func optionalFloat(v float64) *float64 {
	if gametime.IsMissing(v) {
		return nil
	}
	return &v
}
