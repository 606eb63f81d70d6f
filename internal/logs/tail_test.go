package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gametime/internal/logs"
	"gametime/internal/testsupport"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gametime_20240420-093000.log")
	testsupport.WriteFile(t, path, "a\nb\nc\n")

	lines, offset, err := logs.Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", offset)
	}

	all, _, err := logs.Tail(path, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected every line, got %#v %v", all, err)
	}
}

func TestLatestPicksNewestRun(t *testing.T) {
	dir := t.TempDir()
	base := testsupport.MustTime("2024-04-20T09:30:00Z")
	testsupport.TouchRunArtifact(t, dir, base, ".log")
	newest := testsupport.TouchRunArtifact(t, dir, base.Add(24*time.Hour), ".log")
	testsupport.TouchRunArtifact(t, dir, base.Add(48*time.Hour), ".csv")
	testsupport.WriteFile(t, filepath.Join(dir, "notes.log"), "")

	got, err := logs.Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != newest {
		t.Fatalf("Latest = %s, want %s", got, newest)
	}

	if _, err := logs.Latest(filepath.Join(dir, "missing")); !errors.Is(err, logs.ErrNoRunLogs) {
		t.Fatalf("expected ErrNoRunLogs, got %v", err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gametime_20240420-093000.log")
	testsupport.WriteFile(t, path, "start\n")
	_, offset, err := logs.Tail(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, line)
			if line == "later" {
				cancel()
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}
