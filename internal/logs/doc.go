// Package logs finds and tails the per-run log files written under a dataset
// folder's logs/ directory.
//
// Tail reads with bounded memory and Follow polls for appended lines until
// its context ends, which backs `gametime logs --follow`.
package logs
