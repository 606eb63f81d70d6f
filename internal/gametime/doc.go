// Package gametime holds the playtime observation model and the pure
// operations over it.
//
// A Table is an append-only sequence of observations (subject, game,
// acquisition time, cumulative minutes, delta). Merge folds a new acquisition
// run into a dataset, SelectIDs and SelectTime filter and resample it, and
// SelectByRule applies weekly gametime thresholds for inclusion decisions.
// Every operation returns a new Table with game_time_diff recomputed, so
// tables can be shared freely between callers.
//
// Missing playtime is represented by NaN (see Missing and IsMissing) and is
// written as an empty CSV field.
package gametime
