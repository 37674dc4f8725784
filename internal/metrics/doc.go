// Package metrics provides lock-free counters and a latency histogram for the
// session gate.
//
// Counters live in cache-line padded uint64 slots and are incremented with
// [sync/atomic.AddUint64]. The authenticate latency histogram uses 8 fixed
// buckets (5ms up to +Inf). The write path does not allocate.
//
// Export (Prometheus text, OpenTelemetry) lives in metrics/export and reads
// [Snapshot] values. This package performs no I/O.
package metrics
