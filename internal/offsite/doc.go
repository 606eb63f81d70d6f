// Package offsite mirrors acquisition artifacts (the dataset, its backup and
// the run log) to an S3-compatible bucket after each update.
package offsite
