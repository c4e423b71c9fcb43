// Package otel registers OpenTelemetry observable instruments for tokenlife
// engine metrics.
//
// One callback reads Engine.MetricsSnapshot per collection. Histograms are
// flattened into one cumulative gauge per bucket plus a count gauge. Callers
// own the MeterProvider.
package otel
