// Package logging assembles structured slog loggers and formatting helpers used
// across gametime.
//
// It owns the console/JSON handlers, the tee used to copy an acquisition run
// into its own log file, and context helpers that tag log lines with the run
// identifier. Warnings are emitted through WarnWithContext so every one of
// them carries an event_type, an error_hint and an impact. Recorder captures
// records in memory so tests can assert on warning messages.
package logging
