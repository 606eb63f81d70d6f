package gametime

// Merge appends incoming observations to existing and recomputes
// game_time_diff over the combined table.
//
// Steam only reports playtime for games played in the last two weeks, so a
// missing incoming value is replaced with the subject's latest known
// game_time. The delta for an idle subject is then 0 instead of a gap. A
// subject with no known value keeps the missing sentinel.
func Merge(existing, incoming Table) (Table, error) {
	if err := existing.Validate(); err != nil {
		return Table{}, Wrap(ErrValidation, "merge", "existing dataset", err)
	}
	if err := incoming.Validate(); err != nil {
		return Table{}, Wrap(ErrValidation, "merge", "incoming observations", err)
	}
	if existing.Empty() {
		return Table{rows: withDiffs(incoming.rows)}, nil
	}

	known := lastKnownGameTime(existing.rows)
	combined := make([]Observation, 0, len(existing.rows)+len(incoming.rows))
	combined = append(combined, existing.rows...)
	for _, r := range incoming.rows {
		if IsMissing(r.GameTime) {
			if v, ok := known[r.SteamID]; ok {
				r.GameTime = v
			}
		}
		combined = append(combined, r)
	}
	return Table{rows: withDiffs(combined)}, nil
}

func lastKnownGameTime(rows []Observation) map[string]float64 {
	known := make(map[string]float64)
	for _, r := range rows {
		if !IsMissing(r.GameTime) {
			known[r.SteamID] = r.GameTime
		}
	}
	return known
}
