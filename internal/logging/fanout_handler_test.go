package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerNilHandlers(t *testing.T) {
	h := newFanoutHandler(nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler for all nil handlers, got %T", h)
	}
}

func TestNewFanoutHandlerSingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Error("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsChildLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	infoH := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	warnH := slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(newFanoutHandler(infoH, warnH)).With("component", "store")

	logger.Info("fetched")
	logger.Warn("missing")

	if !strings.Contains(infoBuf.String(), "fetched") || !strings.Contains(infoBuf.String(), "missing") {
		t.Fatalf("info handler should see both records: %q", infoBuf.String())
	}
	if strings.Contains(warnBuf.String(), "fetched") {
		t.Fatalf("warn handler should not see info record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=store") {
		t.Fatalf("expected WithAttrs to reach every child: %q", warnBuf.String())
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanoutHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	h := newFanoutHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))
	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !strings.Contains(buf.String(), "msg=x") {
		t.Fatal("healthy handler should still receive the record")
	}
}

func TestTeeLoggerWritesRunFile(t *testing.T) {
	var console bytes.Buffer
	base, err := New(Options{Level: "info", Format: "console", Writer: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "logs", "gametime_20240101-000000.log")
	fileHandler, closer, err := NewFileHandler(path, Options{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("NewFileHandler: %v", err)
	}
	logger := TeeLogger(NewComponentLogger(base, "store"), fileHandler)
	WarnWithContext(logger, "Empty gametime dataset.", "dataset_empty")
	logger.Debug("debug only in file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := console.String()
	for _, want := range []string{"WARN", "store: Empty gametime dataset.", "event_type=dataset_empty", "error_hint=", "impact="} {
		if !strings.Contains(line, want) {
			t.Fatalf("console output %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "debug only") {
		t.Fatal("console logger is info level")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"dataset_empty"`) || !strings.Contains(string(data), "debug only in file") {
		t.Fatalf("unexpected run log content: %s", data)
	}
}

func TestRecorderSharesStateAcrossWith(t *testing.T) {
	rec, logger := NewRecorder()
	child := WithContext(WithRunID(context.Background(), "run-1"), NewComponentLogger(logger, "steam"))
	WarnWithContext(child, "Game '78000' not found", "steam_game_not_recent", String(FieldSteamID, "42"))
	logger.Info("done")

	if len(rec.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rec.Entries()))
	}
	if !rec.HasWarning("not found") {
		t.Fatal("expected warning to be recorded")
	}
	w := rec.Warnings()[0]
	if w.Fields[FieldRunID] != "run-1" || w.Fields[FieldComponent] != "steam" || w.Fields[FieldSteamID] != "42" {
		t.Fatalf("unexpected fields %v", w.Fields)
	}
	if got := rec.WarningEvents(); len(got) != 1 || got[0] != "steam_game_not_recent" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
