// Package metric provides Prometheus-based metrics for the CycleKit
// runtime.
//
// The package has two layers. Runtime holds the counters and histograms the
// component engine records on every dispatch, render, response delivery,
// drop, and reducer execution; its recorder methods are nil-safe so a
// component can be wired without metrics at all. Registry owns the
// Prometheus registry, pre-registers the Runtime metrics together with the
// Go and process collectors, and accepts driver- or application-specific
// collectors through the Registrar interface.
//
// The registry's Handler is plain promhttp; the HTTP driver mounts it at
// /metrics.
package metric
