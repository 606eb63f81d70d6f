package gametime

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"gametime/internal/logging"
)

// SelectIDs keeps the observations of the given subjects, preserving row
// order.
func SelectIDs(t Table, ids []string) (Table, error) {
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return Table{}, invalidArgument("select ids", "steam_id must be a non-empty string")
		}
		wanted[id] = struct{}{}
	}
	var out []Observation
	for _, r := range t.rows {
		if _, ok := wanted[r.SteamID]; ok {
			out = append(out, r)
		}
	}
	return Table{rows: withDiffs(out)}, nil
}

// Window selects observations by acquisition time. Nil bounds default to the
// first and last acquisition in the table. A positive Freq resamples the
// selection onto a regular grid.
type Window struct {
	Start *time.Time
	End   *time.Time
	Freq  time.Duration
}

// SelectTime filters t to the closed interval [Start, End] and, when Freq is
// set, resamples it by nearest acquisition time. game_time_diff is recomputed
// over the selected rows so deltas reflect the new sampling gaps.
func SelectTime(t Table, w Window, logger *slog.Logger) (Table, error) {
	if w.Start == nil && w.End == nil && w.Freq == 0 {
		return Table{}, invalidArgument("select time",
			"No selection or resampling requested. At least one argument among 'start', 'end' and 'freq' must be provided.")
	}
	if w.Freq < 0 {
		return Table{}, invalidArgument("select time", "the resampling frequency must be positive")
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}

	first, last, ok := t.Span()
	start, end := first, last
	if w.Start != nil {
		start = w.Start.UTC()
	}
	if w.End != nil {
		end = w.End.UTC()
	}
	if (ok || (w.Start != nil && w.End != nil)) && end.Before(start) {
		return Table{}, invalidArgument("select time", "The end datetime must be greater than the start datetime.")
	}
	if !ok {
		return Table{}, nil
	}

	var window []Observation
	for _, r := range t.rows {
		if !r.AcqTime.Before(start) && !r.AcqTime.After(end) {
			window = append(window, r)
		}
	}
	window = dropDuplicatePairs(window, logger)
	if w.Freq > 0 {
		window = resample(window, start, end, w.Freq, logger)
	}
	return Table{rows: withDiffs(window)}, nil
}

type subjectTime struct {
	steamID string
	acqTime int64
}

// dropDuplicatePairs keeps the first row of every (steam_id, acq_time) pair.
func dropDuplicatePairs(rows []Observation, logger *slog.Logger) []Observation {
	seen := make(map[subjectTime]struct{}, len(rows))
	out := make([]Observation, 0, len(rows))
	var dropped []string
	for _, r := range rows {
		key := subjectTime{steamID: r.SteamID, acqTime: r.AcqTime.UnixNano()}
		if _, dup := seen[key]; dup {
			dropped = append(dropped, r.SteamID+"@"+FormatTimestamp(r.AcqTime))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	if len(dropped) > 0 {
		logging.WarnWithContext(logger,
			"Duplicate (steam_id, acq_time) pairs found: ["+strings.Join(dropped, ", ")+"]. Dropping duplicates.",
			"select_duplicate_pairs",
			logging.Int("dropped", len(dropped)),
			logging.Hint("the dataset holds two observations of one subject at the same time; check for hand-edited or merged dataset files"),
			logging.Impact("the first observation of each pair was kept"),
		)
	}
	return out
}

// resample picks, for every grid point start, start+freq, ... <= end, the
// rows whose acquisition time is nearest to it. Equidistant rows are all
// kept. Rows picked by several grid points are kept once and a warning is
// logged. The result preserves the input order.
func resample(rows []Observation, start, end time.Time, freq time.Duration, logger *slog.Logger) []Observation {
	if len(rows) == 0 {
		return nil
	}
	// Distinct acquisition times, ascending, with the rows sharing each one.
	byTime := make(map[int64][]int)
	for i, r := range rows {
		key := r.AcqTime.UnixNano()
		byTime[key] = append(byTime[key], i)
	}
	times := make([]int64, 0, len(byTime))
	for k := range byTime {
		times = append(times, k)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	picked := make(map[int]struct{})
	duplicates := false
	pick := func(key int64) {
		for _, idx := range byTime[key] {
			if _, seen := picked[idx]; seen {
				duplicates = true
				continue
			}
			picked[idx] = struct{}{}
		}
	}
	for g := start; !g.After(end); g = g.Add(freq) {
		target := g.UnixNano()
		pos := sort.Search(len(times), func(i int) bool { return times[i] >= target })
		switch {
		case pos == len(times):
			pick(times[pos-1])
		case pos == 0 || times[pos] == target:
			pick(times[pos])
		default:
			below, above := target-times[pos-1], times[pos]-target
			if below <= above {
				pick(times[pos-1])
			}
			if above <= below {
				pick(times[pos])
			}
		}
	}

	if duplicates {
		logging.WarnWithContext(logger,
			"Duplicate indices found. Pay attention to the resampling frequency requested '"+FormatFreq(freq)+"'. Dropping duplicates.",
			"resample_duplicates",
			logging.String("freq", FormatFreq(freq)),
			logging.Hint("use a resampling frequency no finer than the acquisition interval"),
			logging.Impact("repeated nearest observations were kept once"),
		)
	}

	indices := make([]int, 0, len(picked))
	for idx := range picked {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := make([]Observation, len(indices))
	for i, idx := range indices {
		out[i] = rows[idx]
	}
	return out
}
