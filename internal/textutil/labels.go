package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var columnLabels = map[string]string{
	"steam_id":       "Steam ID",
	"game_id":        "Game",
	"acq_time":       "Acquisition time",
	"game_time":      "Gametime (min)",
	"game_time_diff": "Gametime delta (min)",
}

// ColumnLabel returns the display label for a dataset column. Unknown columns
// are title-cased with underscores turned into spaces.
func ColumnLabel(column string) string {
	if label, ok := columnLabels[column]; ok {
		return label
	}
	words := strings.Join(strings.FieldsFunc(column, func(r rune) bool { return r == '_' || r == ' ' }), " ")
	if words == "" {
		return column
	}
	return cases.Title(language.Und).String(words)
}
