// Package metrics aggregates sampler results for a test plan run.
//
// The [Collector] keeps one HDR histogram for the whole run and one per sampler
// label, together with exact min/max/sum values:
//
//	collector := metrics.NewCollector()
//	collector.Record(metrics.Sample{Label: "home", Elapsed: latency, Code: "200"})
//	snap := collector.Snapshot(elapsed)
//
// # Snapshot
//
// A [Snapshot] carries the overall [Summary], a per-label breakdown in
// first-seen order, a failure breakdown by category, failing response codes
// per label, and a per-second timeline used for charts.
//
// Percentiles come from the histogram and are clamped into the exact
// [min, max] range, so min <= p50 <= p90 <= p95 <= p99 <= max always holds.
//
// # Thread Safety
//
// Record may be called from any number of goroutines.
package metrics
