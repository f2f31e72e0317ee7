// Package otel provides OpenTelemetry metric bindings for engine counters
// and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and an Int64ObservableGauge per histogram bucket. A single callback reads
// [authkit.Engine.MetricsSnapshot] on each collection cycle. The caller
// owns the MeterProvider and supplies the Meter.
package otel
