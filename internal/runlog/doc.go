// Package runlog persists a ledger of acquisition runs in SQLite so
// operators can audit when the dataset was updated and how many fetches
// failed.
package runlog
