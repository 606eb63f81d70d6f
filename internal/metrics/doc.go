// Package metrics exports acquisition run statistics in the Prometheus text
// format. gametime runs as a short-lived command, so metrics are written to a
// node_exporter textfile instead of being scraped from an endpoint.
package metrics
