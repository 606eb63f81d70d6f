// Package main hosts the gametime CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration, logging and the internal
// packages together: acquisition runs (update, prune), dataset selection
// (select, rule), group assignment (randomize) and operational commands
// (runs, logs, doctor, config). Keep domain logic in internal/ and surface it here
// through flags and output formatting.
package main
