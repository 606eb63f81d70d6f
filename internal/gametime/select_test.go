package gametime_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gametime/internal/gametime"
	"gametime/internal/logging"
	"gametime/internal/testsupport"
)

func ptr(ts time.Time) *time.Time { return &ts }

func TestSelectIDsKeepsOrderAndRejectsBlank(t *testing.T) {
	table := testsupport.Table(
		testsupport.Series("a", "78000", t0, time.Hour, 1, 2),
		testsupport.Series("b", "78000", t0, time.Hour, 3, 4),
		testsupport.Series("c", "78000", t0, time.Hour, 5, 6),
	)
	got, err := gametime.SelectIDs(table, []string{"c", "a", "zzz"})
	if err != nil {
		t.Fatalf("SelectIDs: %v", err)
	}
	if ids := got.SteamIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected ids %v", ids)
	}
	assertDiffs(t, diffs(got), math.NaN(), 1, math.NaN(), 1)

	if _, err := gametime.SelectIDs(table, []string{" "}); !errors.Is(err, gametime.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for blank id, got %v", err)
	}
	if empty, err := gametime.SelectIDs(table, nil); err != nil || !empty.Empty() {
		t.Fatalf("expected empty selection, got %d rows err=%v", empty.Len(), err)
	}
}

func TestSelectTimeArgumentErrors(t *testing.T) {
	table := testsupport.Table(testsupport.Series("a", "78000", t0, time.Hour, 1, 2, 3))

	_, err := gametime.SelectTime(table, gametime.Window{}, nil)
	if err == nil || !strings.Contains(err.Error(), "At least one argument among 'start', 'end' and 'freq'") {
		t.Fatalf("expected no-selection error, got %v", err)
	}

	_, err = gametime.SelectTime(table, gametime.Window{Start: ptr(t0.Add(time.Hour)), End: ptr(t0)}, nil)
	if err == nil || !strings.Contains(err.Error(), "The end datetime must be greater than the start datetime.") {
		t.Fatalf("expected end-before-start error, got %v", err)
	}

	// The end defaults to the last acquisition, which is before this start.
	_, err = gametime.SelectTime(table, gametime.Window{Start: ptr(t0.Add(48 * time.Hour))}, nil)
	if !errors.Is(err, gametime.ErrInvalidArgument) {
		t.Fatalf("expected resolved bounds to be checked, got %v", err)
	}
}

func TestSelectTimeClosedIntervalRecomputesDiffs(t *testing.T) {
	table := testsupport.Table(testsupport.Series("a", "78000", t0, time.Hour, 0, 10, 30, 60, 100))
	got, err := gametime.SelectTime(table, gametime.Window{Start: ptr(t0.Add(time.Hour)), End: ptr(t0.Add(3 * time.Hour))}, nil)
	if err != nil {
		t.Fatalf("SelectTime: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected both bounds included, got %d rows", got.Len())
	}
	assertDiffs(t, diffs(got), math.NaN(), 20, 30)
}

func TestSelectTimeResampleNearestAndRediff(t *testing.T) {
	// Two subjects sampled every 6 hours, 60 minutes per sample.
	table := testsupport.Table(
		testsupport.Series("a", "78000", t0, 6*time.Hour, testsupport.Linear(12, 60)...),
		testsupport.Series("b", "78000", t0, 6*time.Hour, testsupport.Linear(12, 30)...),
	)
	rec, logger := logging.NewRecorder()
	got, err := gametime.SelectTime(table, gametime.Window{Freq: gametime.Day}, logger)
	if err != nil {
		t.Fatalf("SelectTime: %v", err)
	}
	// Grid t0, t0+1d, t0+2d hits samples 0, 4 and 8 of each subject.
	if got.Len() != 6 {
		t.Fatalf("expected 6 resampled rows, got %d", got.Len())
	}
	assertDiffs(t, diffs(got), math.NaN(), 240, 240, math.NaN(), 120, 120)
	if len(rec.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", rec.Warnings())
	}
}

func TestSelectTimeResampleDuplicateWarning(t *testing.T) {
	table := testsupport.Table(testsupport.Series("a", "78000", t0, 24*time.Hour, 0, 100, 200))
	rec, logger := logging.NewRecorder()
	got, err := gametime.SelectTime(table, gametime.Window{Freq: 6 * time.Hour}, logger)
	if err != nil {
		t.Fatalf("SelectTime: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected duplicates dropped to 3 rows, got %d", got.Len())
	}
	if !rec.HasWarning("Duplicate indices found. Pay attention to the resampling frequency requested '6h'") {
		t.Fatalf("expected duplicate warning, got %v", rec.Warnings())
	}
}

func TestSelectTimeDropsRepeatedSubjectTimes(t *testing.T) {
	repeated := testsupport.Series("a", "78000", t0.Add(time.Hour), time.Hour, 30)
	table := testsupport.Table(
		testsupport.Series("a", "78000", t0, time.Hour, 0, 10, 20),
		repeated,
		testsupport.Series("b", "78000", t0.Add(time.Hour), time.Hour, 5),
	)
	windows := map[string]gametime.Window{
		"window":   {Start: ptr(t0)},
		"resample": {Freq: time.Hour},
	}
	for name, w := range windows {
		t.Run(name, func(t *testing.T) {
			rec, logger := logging.NewRecorder()
			got, err := gametime.SelectTime(table, w, logger)
			if err != nil {
				t.Fatalf("SelectTime: %v", err)
			}
			if got.Len() != 4 {
				t.Fatalf("expected the repeated row dropped leaving 4 rows, got %d", got.Len())
			}
			for _, r := range got.Rows() {
				if r.SteamID == "a" && r.AcqTime.Equal(t0.Add(time.Hour)) && r.GameTime != 10 {
					t.Fatalf("expected the first observation kept, got %v", r.GameTime)
				}
			}
			assertDiffs(t, diffs(got), math.NaN(), 10, 10, math.NaN())
			if !rec.HasWarning("Duplicate (steam_id, acq_time) pairs found") {
				t.Fatalf("expected duplicate pair warning, got %v", rec.Warnings())
			}
		})
	}
}

func TestSelectTimeResampleKeepsEquidistantRows(t *testing.T) {
	table := testsupport.Table(testsupport.Series("a", "78000", t0, 2*time.Hour, 0, 10))
	rec, logger := logging.NewRecorder()
	// Grid t0-1h, t0+1h. The second point is equidistant from both samples.
	got, err := gametime.SelectTime(table, gametime.Window{Start: ptr(t0.Add(-time.Hour)), Freq: 2 * time.Hour}, logger)
	if err != nil {
		t.Fatalf("SelectTime: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected both equidistant samples, got %d rows", got.Len())
	}
	assertDiffs(t, diffs(got), math.NaN(), 10)
	if !rec.HasWarning("Dropping duplicates.") {
		t.Fatal("the first sample is nearest to both grid points")
	}
}

// The resampled deltas telescope: their sum equals the sum of the original
// deltas over the span covered by the resampled points.
func TestResampleDiffSumMatchesOriginalSpan(t *testing.T) {
	values := []float64{0, 5, 5, 17, 40, 41, 41, 90, 120, 121, 150, 151, 200}
	table := testsupport.Table(testsupport.Series("a", "78000", t0, 5*time.Hour, values...))
	for _, freq := range []time.Duration{7 * time.Hour, 11 * time.Hour, gametime.Day, 2 * gametime.Day} {
		got, err := gametime.SelectTime(table, gametime.Window{Freq: freq}, nil)
		if err != nil {
			t.Fatalf("SelectTime(%s): %v", freq, err)
		}
		first, last := got.Row(0), got.Row(got.Len()-1)
		var resampled, original float64
		for _, d := range diffs(got) {
			if !math.IsNaN(d) {
				resampled += d
			}
		}
		for i := 1; i < table.Len(); i++ {
			r := table.Row(i)
			if r.AcqTime.After(first.AcqTime) && !r.AcqTime.After(last.AcqTime) {
				original += r.GameTimeDiff
			}
		}
		if resampled != original {
			t.Fatalf("freq %s: resampled sum %v != original sum %v", freq, resampled, original)
		}
	}
}

func TestSelectTimeOnEmptyTable(t *testing.T) {
	got, err := gametime.SelectTime(gametime.Table{}, gametime.Window{Freq: time.Hour}, nil)
	if err != nil || !got.Empty() {
		t.Fatalf("expected empty result, got %d rows err=%v", got.Len(), err)
	}
}

func TestParseTimeAndFreq(t *testing.T) {
	cases := map[string]string{
		"2024-05-01":                "2024-05-01T00:00:00Z",
		"2024-05-01 10":             "2024-05-01T10:00:00Z",
		"2024-05-01 10:30":          "2024-05-01T10:30:00Z",
		"2024-05-01T10:30:15":       "2024-05-01T10:30:15Z",
		"2024-05-01T12:30:00+02:00": "2024-05-01T10:30:00Z",
		"2024-05-01 10:30:00+00:00": "2024-05-01T10:30:00Z",
	}
	for in, want := range cases {
		got, err := gametime.ParseTime(in)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", in, err)
		}
		if got.Format(time.RFC3339) != want {
			t.Fatalf("ParseTime(%q) = %s, want %s", in, got.Format(time.RFC3339), want)
		}
	}
	if _, err := gametime.ParseTime("yesterday"); !errors.Is(err, gametime.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	freqs := map[string]time.Duration{
		"1D":    gametime.Day,
		"D":     gametime.Day,
		"6h":    6 * time.Hour,
		"30min": 30 * time.Minute,
		"2W":    2 * gametime.Week,
		"90m":   90 * time.Minute,
	}
	for in, want := range freqs {
		got, err := gametime.ParseFreq(in)
		if err != nil || got != want {
			t.Fatalf("ParseFreq(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "0D", "-1h", "fortnight"} {
		if _, err := gametime.ParseFreq(bad); err == nil {
			t.Fatalf("ParseFreq(%q) should fail", bad)
		}
	}
	if gametime.FormatFreq(gametime.Day) != "1D" || gametime.FormatFreq(6*time.Hour) != "6h" {
		t.Fatal("unexpected FormatFreq output")
	}
}
