// Package otel exposes gate metrics through an OpenTelemetry meter supplied by
// the caller. Each counter becomes an Int64ObservableCounter and each latency
// bucket an Int64ObservableGauge, all fed by one callback.
package otel
