package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level   slog.Level
	Message string
	Fields  map[string]string
}

// Recorder is an in-memory slog handler. Loggers derived from it with With
// share the same buffer.
type Recorder struct {
	state *recorderState
	attrs []slog.Attr
	group string
}

type recorderState struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns a Recorder and a logger writing into it.
func NewRecorder() (*Recorder, *slog.Logger) {
	rec := &Recorder{state: &recorderState{}}
	return rec, slog.New(rec)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, record slog.Record) error {
	fields := make(map[string]string, record.NumAttrs()+len(r.attrs))
	for _, attr := range r.attrs {
		fields[r.key(attr.Key)] = attrString(attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[r.key(attr.Key)] = attrString(attr.Value)
		return true
	})
	r.state.mu.Lock()
	r.state.entries = append(r.state.entries, Entry{Level: record.Level, Message: record.Message, Fields: fields})
	r.state.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Recorder{state: r.state, attrs: append(append([]slog.Attr(nil), r.attrs...), attrs...), group: r.group}
}

func (r *Recorder) WithGroup(name string) slog.Handler {
	return &Recorder{state: r.state, attrs: r.attrs, group: r.key(name)}
}

func (r *Recorder) key(k string) string {
	if r.group == "" {
		return k
	}
	return r.group + "." + k
}

// Entries returns a snapshot of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return append([]Entry(nil), r.state.entries...)
}

// Warnings returns the recorded entries at WARN level.
func (r *Recorder) Warnings() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == slog.LevelWarn {
			out = append(out, e)
		}
	}
	return out
}

// HasWarning reports whether a warning message contains substr.
func (r *Recorder) HasWarning(substr string) bool {
	for _, e := range r.Warnings() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// WarningEvents lists the event_type of each warning in order.
func (r *Recorder) WarningEvents() []string {
	var out []string
	for _, e := range r.Warnings() {
		out = append(out, e.Fields[FieldEventType])
	}
	return out
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %v", e.Level, e.Message, e.Fields)
}
