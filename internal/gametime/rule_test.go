package gametime_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gametime/internal/gametime"
	"gametime/internal/logging"
	"gametime/internal/testsupport"
)

// A subject playing 60 minutes every 6 hours from 2024-04-12 10:00 UTC.
// Daily resampling from midnight yields 1560 minutes for the first week and
// 1680 for the second.
func ruleFixture(samples int) gametime.Table {
	return testsupport.Table(testsupport.Series("76561198000000001", "2163350", t0, 6*time.Hour, testsupport.Linear(samples, 60)...))
}

func ruleStarts() map[string]time.Time {
	return map[string]time.Time{"76561198000000001": testsupport.MustTime("2024-04-12T00:00:00Z")}
}

func TestSelectByRuleThresholds(t *testing.T) {
	table := ruleFixture(70)
	tests := []struct {
		rule     gametime.Comparison
		amount   float64
		allWeeks bool
		want     int
	}{
		{gametime.Less, 10, true, 0},
		{gametime.Greater, 10, true, 1},
		{gametime.Greater, 1600, true, 0},
		{gametime.Greater, 1600, false, 1},
		{gametime.Greater, 1560, true, 0},
		{gametime.GreaterEqual, 1560, true, 1},
		{gametime.LessEqual, 1560, false, 1},
		{gametime.Less, 1560, false, 0},
		{gametime.Greater, 2000, false, 0},
	}
	for _, tc := range tests {
		got, err := gametime.SelectByRule(table, ruleStarts(), gametime.RuleQuery{Rule: tc.rule, Amount: tc.amount, AllWeeks: tc.allWeeks}, nil)
		if err != nil {
			t.Fatalf("%s %v all=%v: %v", tc.rule, tc.amount, tc.allWeeks, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s %v all=%v: got %v, want %d subjects", tc.rule, tc.amount, tc.allWeeks, got, tc.want)
		}
	}
}

func TestSelectByRuleShortWeekExcluded(t *testing.T) {
	table := ruleFixture(10)
	for _, all := range []bool{true, false} {
		got, err := gametime.SelectByRule(table, ruleStarts(), gametime.RuleQuery{Rule: gametime.Greater, Amount: 500, AllWeeks: all}, nil)
		if err != nil {
			t.Fatalf("SelectByRule: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("all=%v: subject without a completed week must be excluded, got %v", all, got)
		}
	}
}

func TestSelectByRuleMonotoneInAmount(t *testing.T) {
	base := t0
	table := testsupport.Table(
		testsupport.Series("low", "78000", base, 6*time.Hour, testsupport.Linear(90, 10)...),
		testsupport.Series("mid", "78000", base, 6*time.Hour, testsupport.Linear(90, 45)...),
		testsupport.Series("high", "78000", base, 6*time.Hour, testsupport.Linear(90, 90)...),
	)
	start := testsupport.MustTime("2024-04-12T00:00:00Z")
	starts := map[string]time.Time{"low": start, "mid": start, "high": start}
	for _, rule := range []gametime.Comparison{gametime.Less, gametime.LessEqual, gametime.Greater, gametime.GreaterEqual} {
		for _, all := range []bool{true, false} {
			prev := -1
			for amount := 50.0; amount <= 3000; amount += 50 {
				got, err := gametime.SelectByRule(table, starts, gametime.RuleQuery{Rule: rule, Amount: amount, AllWeeks: all}, nil)
				if err != nil {
					t.Fatalf("SelectByRule: %v", err)
				}
				if prev >= 0 {
					grows := rule == gametime.Less || rule == gametime.LessEqual
					if grows && len(got) < prev || !grows && len(got) > prev {
						t.Fatalf("%s all=%v amount=%v: qualifying set went from %d to %d", rule, all, amount, prev, len(got))
					}
				}
				prev = len(got)
			}
		}
	}
}

func TestSelectByRuleOrderFollowsTable(t *testing.T) {
	table := testsupport.Table(
		testsupport.Series("b", "78000", t0, 6*time.Hour, testsupport.Linear(40, 60)...),
		testsupport.Series("a", "78000", t0, 6*time.Hour, testsupport.Linear(40, 60)...),
	)
	start := testsupport.MustTime("2024-04-12T00:00:00Z")
	got, err := gametime.SelectByRule(table, map[string]time.Time{"a": start, "b": start}, gametime.RuleQuery{Rule: gametime.Greater, Amount: 1}, nil)
	if err != nil {
		t.Fatalf("SelectByRule: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("expected table order [b a], got %v", got)
	}
}

func TestSelectByRuleStartDateRoundedDown(t *testing.T) {
	table := ruleFixture(70)
	rec, logger := logging.NewRecorder()
	starts := map[string]time.Time{"76561198000000001": testsupport.MustTime("2024-04-12T18:30:00Z")}
	got, err := gametime.SelectByRule(table, starts, gametime.RuleQuery{Rule: gametime.GreaterEqual, Amount: 1560, AllWeeks: true}, logger)
	if err != nil {
		t.Fatalf("SelectByRule: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rounding down to midnight should reproduce the midnight result, got %v", got)
	}
	if !rec.HasWarning("Start date for 76561198000000001 is not at midnight 00:00:00") {
		t.Fatalf("expected midnight warning, got %v", rec.Warnings())
	}
}

func TestSelectByRuleArgumentErrors(t *testing.T) {
	table := ruleFixture(20)
	_, err := gametime.SelectByRule(table, ruleStarts(), gametime.RuleQuery{Rule: gametime.Greater, Amount: 0}, nil)
	if err == nil || !strings.Contains(err.Error(), "The amount of gametime must be strictly positive.") {
		t.Fatalf("expected amount error, got %v", err)
	}
	_, err = gametime.SelectByRule(table, ruleStarts(), gametime.RuleQuery{Rule: "==", Amount: 10}, nil)
	if !errors.Is(err, gametime.ErrInvalidArgument) {
		t.Fatalf("expected invalid rule error, got %v", err)
	}
	_, err = gametime.SelectByRule(table, map[string]time.Time{"unknown": t0}, gametime.RuleQuery{Rule: gametime.Greater, Amount: 10}, nil)
	if !errors.Is(err, gametime.ErrInvalidArgument) {
		t.Fatalf("expected unknown subject error, got %v", err)
	}
	if _, err := gametime.ParseComparison(">="); err != nil {
		t.Fatalf("ParseComparison: %v", err)
	}
}
