// Package preflight provides readiness checks for the services and paths an
// acquisition run depends on.
//
// The CLI "gametime doctor" command runs RunAll and prints each Result;
// "gametime update" runs the same checks before fetching when --preflight is
// given. Checks for optional features (ledger, metrics, offsite) are skipped
// when the feature is disabled.
package preflight
