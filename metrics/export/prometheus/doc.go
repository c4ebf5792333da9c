// Package prometheus provides a Prometheus collector for sessionguard metrics.
//
// [NewCollector] accepts a [sessionguard.Engine] and implements
// prometheus.Collector over its metrics snapshot. Counter names are prefixed
// sessionguard_*_total; the single histogram is
// sessionguard_add_session_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     collector or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
