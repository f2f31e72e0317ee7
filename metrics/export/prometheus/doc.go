// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [authkit.Engine] and exposes an
// [net/http.Handler] that renders all engine counters and histograms.
// Counter names are prefixed authkit_*_total; the single histogram is
// authkit_validate_latency_seconds. Nothing is registered in a global
// Prometheus registry; callers mount the Handler where they want it.
package prometheus
