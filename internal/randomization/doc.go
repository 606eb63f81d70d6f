// Package randomization assigns newly enrolled subjects to groups while
// keeping a covariate balanced across groups.
//
// Empty groups always win, then a single smallest group. Among several
// smallest groups the configured Strategy decides.
package randomization
