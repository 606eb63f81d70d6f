package gametime

import "fmt"

// Dataset column names.
const (
	ColIndex        = ""
	ColSteamID      = "steam_id"
	ColGameID       = "game_id"
	ColGameTime     = "game_time"
	ColGameTimeDiff = "game_time_diff"
	ColAcqTime      = "acq_time"
)

// Kind is the semantic type of a dataset column.
type Kind int

const (
	KindIndex Kind = iota
	KindString
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindTime:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Column describes one dataset column.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is an ordered list of columns. The order is the order used when
// writing; reading accepts any order.
type Schema struct {
	Columns []Column
}

// DatasetSchema is the layout of gametime.csv. The unnamed first column is
// the 0-based row index.
var DatasetSchema = Schema{Columns: []Column{
	{Name: ColIndex, Kind: KindIndex},
	{Name: ColSteamID, Kind: KindString, Required: true},
	{Name: ColAcqTime, Kind: KindTime, Required: true},
	{Name: ColGameTime, Kind: KindFloat, Required: true},
	{Name: ColGameID, Kind: KindString, Required: true},
	{Name: ColGameTimeDiff, Kind: KindFloat, Required: true},
}}

// Header returns the column names in write order.
func (s Schema) Header() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Bind maps a file header onto the schema and returns the position of each
// column. Missing required columns, unknown columns and repeated columns are
// reported as ValidationError.
func (s Schema) Bind(header []string) (map[string]int, error) {
	known := make(map[string]Column, len(s.Columns))
	for _, c := range s.Columns {
		known[c.Name] = c
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 && name == "Unnamed: 0" {
			name = ColIndex
		}
		if _, ok := known[name]; !ok {
			return nil, headerError(CauseExtraColumn, name, "not part of the dataset schema")
		}
		if _, dup := positions[name]; dup {
			return nil, headerError(CauseExtraColumn, name, fmt.Sprintf("repeated at position %d", i))
		}
		positions[name] = i
	}
	for _, c := range s.Columns {
		if _, ok := positions[c.Name]; !ok && c.Required {
			return nil, headerError(CauseMissingColumn, c.Name, "expected "+c.Kind.String())
		}
	}
	return positions, nil
}
