package gametime

import (
	"log/slog"
	"sort"
	"strings"

	"gametime/internal/logging"
)

// Mapping translates identifiers to display labels. Keys without an entry
// map to themselves.
type Mapping map[string]string

// Lookup returns the label for key, or key itself.
func (m Mapping) Lookup(key string) string {
	if label, ok := m[key]; ok && label != "" {
		return label
	}
	return key
}

// Rename replaces game ids with game names and steam ids with subject labels.
// Game ids without a name are kept and reported in one warning; values that
// already are game names pass through silently. A subject mapping that would
// give two distinct subjects the same label fails with a MappingError.
func Rename(t Table, games, subjects Mapping, logger *slog.Logger) (Table, error) {
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	if err := checkInjective(t.SteamIDs(), subjects); err != nil {
		return Table{}, err
	}

	names := make(map[string]struct{}, len(games))
	for _, name := range games {
		names[name] = struct{}{}
	}
	unexpected := make(map[string]struct{})
	out := make([]Observation, len(t.rows))
	for i, r := range t.rows {
		_, isID := games[r.GameID]
		_, isName := names[r.GameID]
		if !isID && !isName {
			unexpected[r.GameID] = struct{}{}
		}
		r.GameID = games.Lookup(r.GameID)
		r.SteamID = subjects.Lookup(r.SteamID)
		out[i] = r
	}
	if len(unexpected) > 0 {
		ids := make([]string, 0, len(unexpected))
		for id := range unexpected {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		logging.WarnWithContext(logger,
			"Unexpected game IDs in the dataset: ["+strings.Join(ids, ", ")+"]",
			"rename_unknown_game",
			logging.Hint("add the game to the [[games]] section of the config"),
			logging.Impact("raw game ids are shown instead of names"),
		)
	}
	return Table{rows: out}, nil
}

func checkInjective(ids []string, m Mapping) error {
	owners := make(map[string][]string, len(ids))
	for _, id := range ids {
		label := m.Lookup(id)
		owners[label] = append(owners[label], id)
	}
	labels := make([]string, 0, len(owners))
	for label := range owners {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if keys := owners[label]; len(keys) > 1 {
			sort.Strings(keys)
			return &MappingError{Label: label, Keys: keys}
		}
	}
	return nil
}
