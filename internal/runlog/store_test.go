package runlog_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"gametime/internal/dataset"
	"gametime/internal/runlog"
	"gametime/internal/steam"
)

func openStore(t *testing.T) *runlog.Store {
	t.Helper()
	store, err := runlog.Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 20, 9, 30, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := runlog.Run{
			ID:          id,
			StartedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
			AcquiredAt:  base.Add(time.Duration(i) * 24 * time.Hour),
			Folder:      "/data",
			DatasetPath: "/data/gametime.csv",
			Subjects:    3,
			Missing:     i,
			Rows:        3 * (i + 1),
			NewDataset:  i == 0,
			Duration:    1500 * time.Millisecond,
			Outcomes:    map[string]int{"ok": 3 - i, "not_recent": i},
		}
		if i > 0 {
			run.BackupPath = "/data/backup/x.csv"
		}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("expected newest runs first, got %+v", runs)
	}
	got := runs[0]
	if got.Missing != 2 || got.Rows != 9 || got.NewDataset || got.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.Outcomes["not_recent"] != 2 || got.Outcomes["ok"] != 1 {
		t.Fatalf("unexpected outcomes %v", got.Outcomes)
	}
	if !got.AcquiredAt.Equal(base.Add(48 * time.Hour)) {
		t.Fatalf("acquired_at = %s", got.AcquiredAt)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 || !all[2].NewDataset || all[2].BackupPath != "" {
		t.Fatalf("unexpected full listing %+v", all)
	}
}

func TestRecordRejectsDuplicateAndBlankID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := runlog.Run{ID: "dup", StartedAt: time.Now(), AcquiredAt: time.Now()}
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, run); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
	if err := store.Record(ctx, runlog.Run{}); err == nil {
		t.Fatal("expected blank id to fail")
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runlog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := runlog.Open(path); !errors.Is(err, runlog.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSinkRecordsSummary(t *testing.T) {
	store := openStore(t)
	sink := runlog.NewSink(store)
	if sink.Name() != "ledger" {
		t.Fatalf("unexpected sink name %q", sink.Name())
	}
	summary := dataset.Summary{
		RunID:      "run-1",
		Folder:     "/data",
		AcquiredAt: time.Date(2024, 4, 20, 9, 30, 0, 0, time.UTC),
		StartedAt:  time.Date(2024, 4, 20, 9, 29, 59, 0, time.UTC),
		Subjects:   2,
		Missing:    1,
		Backfilled: 1,
		Outcomes:   map[steam.Outcome]int{steam.OutcomeOK: 1, steam.OutcomeEmpty: 1},
		Pruned:     []string{"a", "b"},
	}
	if err := sink.Publish(context.Background(), summary); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	runs, err := store.List(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("List: %v %+v", err, runs)
	}
	if runs[0].Pruned != 2 || runs[0].Backfilled != 1 || runs[0].Outcomes["empty"] != 1 {
		t.Fatalf("unexpected recorded run %+v", runs[0])
	}
}
