package gametime

import (
	"math"
	"time"
)

// Observation is one playtime sample for a subject and game.
type Observation struct {
	SteamID      string
	GameID       string
	AcqTime      time.Time
	GameTime     float64 // cumulative minutes, or Missing()
	GameTimeDiff float64 // derived, or Missing()
}

// Missing returns the sentinel used for unknown playtime values.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Table is an immutable, ordered set of observations. Operations on a Table
// return new tables and never modify the receiver.
type Table struct {
	rows []Observation
}

// NewTable copies rows into a Table as-is; diffs are not recomputed.
func NewTable(rows []Observation) Table {
	return Table{rows: append([]Observation(nil), rows...)}
}

// NewTableWithDiffs copies rows and recomputes game_time_diff.
func NewTableWithDiffs(rows []Observation) Table {
	return Table{rows: withDiffs(rows)}
}

func (t Table) Len() int { return len(t.rows) }

func (t Table) Empty() bool { return len(t.rows) == 0 }

// Row returns the observation at index i.
func (t Table) Row(i int) Observation { return t.rows[i] }

// Rows returns a copy of the observations.
func (t Table) Rows() []Observation {
	return append([]Observation(nil), t.rows...)
}

// SteamIDs returns the distinct subjects in order of first appearance.
func (t Table) SteamIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range t.rows {
		if _, ok := seen[r.SteamID]; ok {
			continue
		}
		seen[r.SteamID] = struct{}{}
		ids = append(ids, r.SteamID)
	}
	return ids
}

// Span returns the earliest and latest acquisition times.
func (t Table) Span() (first, last time.Time, ok bool) {
	if len(t.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = t.rows[0].AcqTime, t.rows[0].AcqTime
	for _, r := range t.rows[1:] {
		if r.AcqTime.Before(first) {
			first = r.AcqTime
		}
		if r.AcqTime.After(last) {
			last = r.AcqTime
		}
	}
	return first, last, true
}

// Validate checks the value-level invariants of every row.
func (t Table) Validate() error {
	for i, r := range t.rows {
		switch {
		case r.SteamID == "":
			return &ValidationError{Cause: CauseInvalidValue, Column: ColSteamID, Row: i, Detail: "empty identifier"}
		case r.GameID == "":
			return &ValidationError{Cause: CauseInvalidValue, Column: ColGameID, Row: i, Detail: "empty identifier"}
		case r.AcqTime.IsZero():
			return &ValidationError{Cause: CauseInvalidValue, Column: ColAcqTime, Row: i, Detail: "missing timestamp"}
		case math.IsInf(r.GameTime, 0) || r.GameTime < 0:
			return &ValidationError{Cause: CauseInvalidValue, Column: ColGameTime, Row: i, Detail: "must be a non-negative number of minutes"}
		case math.IsInf(r.GameTimeDiff, 0):
			return &ValidationError{Cause: CauseInvalidValue, Column: ColGameTimeDiff, Row: i, Detail: "must be finite"}
		}
	}
	return nil
}

// withDiffs returns a copy of rows with game_time_diff recomputed as the
// per-subject first difference in row order.
func withDiffs(rows []Observation) []Observation {
	out := make([]Observation, len(rows))
	prev := make(map[string]float64, 8)
	for i, r := range rows {
		if p, ok := prev[r.SteamID]; ok {
			r.GameTimeDiff = r.GameTime - p
		} else {
			r.GameTimeDiff = Missing()
		}
		prev[r.SteamID] = r.GameTime
		out[i] = r
	}
	return out
}
