package testsupport

import (
	"time"

	"gametime/internal/gametime"
)

// Series builds one subject's observations taken every step from start with
// the given cumulative game times. NaN values stand for failed fetches.
func Series(steamID, gameID string, start time.Time, step time.Duration, gameTimes ...float64) []gametime.Observation {
	rows := make([]gametime.Observation, len(gameTimes))
	for i, v := range gameTimes {
		rows[i] = gametime.Observation{
			SteamID:      steamID,
			GameID:       gameID,
			AcqTime:      start.Add(time.Duration(i) * step).UTC(),
			GameTime:     v,
			GameTimeDiff: gametime.Missing(),
		}
	}
	return rows
}

// Linear returns n cumulative game times growing by perStep from zero.
func Linear(n int, perStep float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * perStep
	}
	return out
}

// Table concatenates series into a table with recomputed deltas.
func Table(series ...[]gametime.Observation) gametime.Table {
	var rows []gametime.Observation
	for _, s := range series {
		rows = append(rows, s...)
	}
	return gametime.NewTableWithDiffs(rows)
}

// MustTime parses an RFC 3339 timestamp and panics on error.
func MustTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}

// FixedClock returns a clock function that always reports ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
