// Package notifications announces acquisition runs via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Sink adapts
// a Service to the dataset run sink interface; failed runs are reported by
// the caller through NotifyRunFailed because no summary exists for them.
package notifications
