package gametime

import (
	"sort"
	"time"
)

// DailyTotal is the gametime a subject accumulated on one UTC calendar day.
type DailyTotal struct {
	SteamID string
	GameID  string
	Day     time.Time
	Minutes float64
}

// DailyTotals sums game_time_diff per subject and day, skipping missing
// deltas. Subjects appear in first-appearance order, days ascending. This is
// the table handed to plotting tools.
func DailyTotals(t Table) []DailyTotal {
	type key struct {
		id  string
		day int64
	}
	sums := make(map[key]*DailyTotal)
	order := make(map[string]int)
	for _, r := range t.rows {
		if _, ok := order[r.SteamID]; !ok {
			order[r.SteamID] = len(order)
		}
		day := Midnight(r.AcqTime)
		k := key{id: r.SteamID, day: day.Unix()}
		total, ok := sums[k]
		if !ok {
			total = &DailyTotal{SteamID: r.SteamID, GameID: r.GameID, Day: day}
			sums[k] = total
		}
		if !IsMissing(r.GameTimeDiff) {
			total.Minutes += r.GameTimeDiff
		}
	}
	out := make([]DailyTotal, 0, len(sums))
	for _, total := range sums {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if oi, oj := order[out[i].SteamID], order[out[j].SteamID]; oi != oj {
			return oi < oj
		}
		return out[i].Day.Before(out[j].Day)
	})
	return out
}
