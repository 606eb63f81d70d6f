package gametime_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"gametime/internal/gametime"
	"gametime/internal/testsupport"
)

var t0 = testsupport.MustTime("2024-04-12T10:00:00Z")

func diffs(table gametime.Table) []float64 {
	out := make([]float64, table.Len())
	for i := range out {
		out[i] = table.Row(i).GameTimeDiff
	}
	return out
}

func assertDiffs(t *testing.T, got []float64, want ...float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d diffs %v, want %v", len(got), got, want)
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Fatalf("diff[%d] = %v, want missing (all: %v)", i, got[i], got)
			}
			continue
		}
		if got[i] != want[i] {
			t.Fatalf("diff[%d] = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestMergeIntoEmptyDatasetDiffsIncoming(t *testing.T) {
	incoming := gametime.NewTable(testsupport.Series("a", "78000", t0, time.Hour, 10, 25, 25, 40))
	merged, err := gametime.Merge(gametime.Table{}, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	assertDiffs(t, diffs(merged), math.NaN(), 15, 0, 15)
}

func TestMergeBackfillsMissingFromLastKnownValue(t *testing.T) {
	existing := testsupport.Table(
		testsupport.Series("a", "78000", t0, time.Hour, 100, 120),
		testsupport.Series("b", "78000", t0, time.Hour, 5, math.NaN()),
	)
	run := t0.Add(2 * time.Hour)
	incoming := gametime.NewTable([]gametime.Observation{
		{SteamID: "a", GameID: "78000", AcqTime: run, GameTime: gametime.Missing()},
		{SteamID: "b", GameID: "78000", AcqTime: run, GameTime: gametime.Missing()},
		{SteamID: "c", GameID: "78000", AcqTime: run, GameTime: gametime.Missing()},
	})

	merged, err := gametime.Merge(existing, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 7 {
		t.Fatalf("expected 7 rows, got %d", merged.Len())
	}
	a := merged.Row(4)
	if a.SteamID != "a" || a.GameTime != 120 || a.GameTimeDiff != 0 {
		t.Fatalf("expected subject a backfilled to 120 with diff 0, got %+v", a)
	}
	b := merged.Row(5)
	if b.GameTime != 5 {
		t.Fatalf("expected subject b backfilled from last known value 5, got %v", b.GameTime)
	}
	if !gametime.IsMissing(b.GameTimeDiff) {
		t.Fatalf("previous row of b is missing so the diff must be missing, got %v", b.GameTimeDiff)
	}
	c := merged.Row(6)
	if !gametime.IsMissing(c.GameTime) || !gametime.IsMissing(c.GameTimeDiff) {
		t.Fatalf("subject without history must stay missing, got %+v", c)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing := testsupport.Table(testsupport.Series("a", "78000", t0, time.Hour, 1, 2))
	incoming := gametime.NewTable(testsupport.Series("a", "78000", t0.Add(2*time.Hour), time.Hour, math.NaN()))
	if _, err := gametime.Merge(existing, incoming); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !gametime.IsMissing(incoming.Row(0).GameTime) {
		t.Fatal("Merge modified the incoming table")
	}
	rows := existing.Rows()
	rows[0].GameTime = 99
	if existing.Row(0).GameTime != 1 {
		t.Fatal("Rows must return a copy")
	}
}

func TestMergeRejectsInvalidRows(t *testing.T) {
	incoming := gametime.NewTable([]gametime.Observation{{SteamID: "a", GameID: "1", AcqTime: t0, GameTime: -3}})
	_, err := gametime.Merge(gametime.Table{}, incoming)
	var verr *gametime.ValidationError
	if !errors.As(err, &verr) || verr.Cause != gametime.CauseInvalidValue || verr.Column != gametime.ColGameTime {
		t.Fatalf("expected invalid game_time validation error, got %v", err)
	}
	if !errors.Is(err, gametime.ErrValidation) {
		t.Fatalf("expected ErrValidation marker, got %v", err)
	}
}
