// Package prometheus exposes tokenlife engine metrics through
// client_golang.
//
// [Collector] reads Engine.MetricsSnapshot on every scrape and emits const
// metrics, so the engine never holds Prometheus state. Register it on a
// registry of your choice, or use [Handler] for a ready-made /metrics
// endpoint.
package prometheus
