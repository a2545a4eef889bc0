// Package otel publishes labauth counters through an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per entry in
// [labauth.MetricDefs] plus an audit drop counter. A single callback reads
// the source snapshot on each collection.
//
// The caller owns the MeterProvider.
package otel
