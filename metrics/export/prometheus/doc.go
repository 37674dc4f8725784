// Package prometheus serves gate metrics in Prometheus text exposition format.
//
// Counters are named gogate_*_total and the Authenticate latency histogram is
// gogate_authenticate_latency_seconds. Nothing is registered globally; callers
// mount [Exporter.Handler] themselves.
package prometheus
