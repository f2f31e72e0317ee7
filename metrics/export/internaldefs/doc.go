// Package internaldefs holds the metric name and bucket definitions shared
// by exporter implementations.
//
// Counter and histogram definitions live here so the Prometheus and OTel
// exporters render identical metric names and bucket boundaries. Changing
// a definition changes every exporter at once.
package internaldefs
