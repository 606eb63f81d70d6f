// Package steam fetches cumulative playtime from the Steam Web API.
//
// Fetch never returns an error. Every failure is classified into an Outcome,
// logged once as a warning and reported as a missing value so an acquisition
// run can continue with the remaining subjects.
package steam
