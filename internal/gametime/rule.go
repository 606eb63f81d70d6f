package gametime

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"gametime/internal/logging"
)

// Comparison is the operator applied between a weekly total and the
// threshold amount.
type Comparison string

const (
	Less         Comparison = "<"
	LessEqual    Comparison = "<="
	Greater      Comparison = ">"
	GreaterEqual Comparison = ">="
)

// ParseComparison validates an operator string.
func ParseComparison(value string) (Comparison, error) {
	c := Comparison(strings.TrimSpace(value))
	switch c {
	case Less, LessEqual, Greater, GreaterEqual:
		return c, nil
	default:
		return "", invalidArgument("rule", "unsupported comparison %q; expected one of <, <=, >, >=", value)
	}
}

// Holds reports whether "total <op> amount" is true.
func (c Comparison) Holds(total, amount float64) bool {
	switch c {
	case Less:
		return total < amount
	case LessEqual:
		return total <= amount
	case Greater:
		return total > amount
	case GreaterEqual:
		return total >= amount
	default:
		return false
	}
}

// RuleQuery is a weekly gametime threshold.
type RuleQuery struct {
	Rule     Comparison
	Amount   float64
	AllWeeks bool
}

// Validate checks the operator and the amount.
func (q RuleQuery) Validate() error {
	if _, err := ParseComparison(string(q.Rule)); err != nil {
		return err
	}
	if math.IsNaN(q.Amount) || q.Amount <= 0 {
		return invalidArgument("rule", "The amount of gametime must be strictly positive.")
	}
	return nil
}

// SelectByRule returns the subjects whose weekly gametime satisfies q.
//
// Each subject is evaluated from its start date (truncated to midnight UTC)
// on daily-resampled data. Week k covers (start+7(k-1)d, start+7k d] and is
// complete once data reaches its end. With AllWeeks every completed week
// must satisfy the rule; otherwise one week is enough. Subjects without a
// completed week are excluded. Results follow the order in which subjects
// first appear in t.
func SelectByRule(t Table, starts map[string]time.Time, q RuleQuery, logger *slog.Logger) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(starts) == 0 {
		return nil, invalidArgument("rule", "at least one start date must be provided")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	present := make(map[string]struct{})
	for _, id := range t.SteamIDs() {
		present[id] = struct{}{}
	}
	normalized := make(map[string]time.Time, len(starts))
	ids := make([]string, 0, len(starts))
	for id, ts := range starts {
		if _, ok := present[id]; !ok {
			return nil, invalidArgument("rule", "steam_id %q has a start date but no observations", id)
		}
		midnight := Midnight(ts)
		if !ts.UTC().Equal(midnight) {
			logging.WarnWithContext(logger,
				"Start date for "+id+" is not at midnight 00:00:00. It has been rounded down to "+midnight.Format("2006-01-02")+".",
				"rule_start_not_midnight",
				logging.SteamID(id),
				logging.Hint("provide start dates as YYYY-MM-DD"),
				logging.Impact("evaluation starts at midnight of the given day"),
			)
		}
		normalized[id] = midnight
		ids = append(ids, id)
	}

	subjects, err := SelectIDs(t, ids)
	if err != nil {
		return nil, err
	}
	var selected []string
	for _, id := range subjects.SteamIDs() {
		ok, err := evaluateSubject(subjects, id, normalized[id], q, logger)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, id)
		}
	}
	return selected, nil
}

func evaluateSubject(t Table, id string, start time.Time, q RuleQuery, logger *slog.Logger) (bool, error) {
	var rows []Observation
	for _, r := range t.rows {
		if r.SteamID == id && !r.AcqTime.Before(start) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return false, nil
	}
	daily, err := SelectTime(Table{rows: rows}, Window{Start: &start, Freq: Day}, logger)
	if err != nil {
		return false, err
	}
	_, last, _ := daily.Span()
	if start.Add(Week).After(last) {
		if logger != nil {
			logger.Info("subject excluded without a completed week",
				logging.SteamID(id),
				logging.Time("start", start),
				logging.Time("last_acq_time", last),
			)
		}
		return false, nil
	}
	for weekStart := start; !weekStart.Add(Week).After(last); weekStart = weekStart.Add(Week) {
		total := weekTotal(daily.rows, weekStart, weekStart.Add(Week))
		holds := q.Rule.Holds(total, q.Amount)
		if q.AllWeeks && !holds {
			return false, nil
		}
		if !q.AllWeeks && holds {
			return true, nil
		}
	}
	return q.AllWeeks, nil
}

func weekTotal(rows []Observation, from, to time.Time) float64 {
	var total float64
	for _, r := range rows {
		if r.AcqTime.After(from) && !r.AcqTime.After(to) && !IsMissing(r.GameTimeDiff) {
			total += r.GameTimeDiff
		}
	}
	return total
}
