// Package dataset owns the gametime dataset folder: the CSV file, its
// backups and the per-run logs.
//
// Store.Update runs one acquisition: it fetches the current playtime of
// every cohort subject, merges the run into the dataset, keeps a backup of
// the previous file and prunes run artifacts older than the retention
// window. Only one update may run per folder at a time; an advisory lock
// file enforces this.
package dataset
