package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Runtime contains all runtime-level metrics (not component-specific
// business metrics). All recorder methods are nil-safe so components can be
// wired without a metrics registry.
type Runtime struct {
	ActionsDispatched *prometheus.CounterVec
	RendersTotal      *prometheus.CounterVec
	ResponsesTotal    *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	RequestsDeduped   *prometheus.CounterVec
	ReducerDuration   *prometheus.HistogramVec
}

// NewRuntime creates a new Runtime instance with all runtime metrics
func NewRuntime() *Runtime {
	return &Runtime{
		ActionsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyclekit",
				Subsystem: "actions",
				Name:      "dispatched_total",
				Help:      "Total number of actions delivered to the bus",
			},
			[]string{"component", "type"},
		),

		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyclekit",
				Subsystem: "view",
				Name:      "renders_total",
				Help:      "Total number of coalesced view recomputations",
			},
			[]string{"component"},
		),

		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyclekit",
				Subsystem: "responses",
				Name:      "delivered_total",
				Help:      "Total number of responses delivered to the request source",
			},
			[]string{"component", "command"},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyclekit",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of events dropped during processing",
			},
			[]string{"component", "reason"},
		),

		RequestsDeduped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cyclekit",
				Subsystem: "requests",
				Name:      "deduplicated_total",
				Help:      "Total number of consecutive duplicate requests suppressed",
			},
			[]string{"component"},
		),

		ReducerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cyclekit",
				Subsystem: "reducers",
				Name:      "duration_seconds",
				Help:      "Reducer execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "sink"},
		),
	}
}

// RecordAction increments the dispatched action counter
func (r *Runtime) RecordAction(component, actionType string) {
	if r == nil {
		return
	}
	r.ActionsDispatched.WithLabelValues(component, actionType).Inc()
}

// RecordRender increments the render counter
func (r *Runtime) RecordRender(component string) {
	if r == nil {
		return
	}
	r.RendersTotal.WithLabelValues(component).Inc()
}

// RecordResponse increments the delivered response counter
func (r *Runtime) RecordResponse(component, command string) {
	if r == nil {
		return
	}
	r.ResponsesTotal.WithLabelValues(component, command).Inc()
}

// RecordDrop increments the dropped event counter
func (r *Runtime) RecordDrop(component, reason string) {
	if r == nil {
		return
	}
	r.EventsDropped.WithLabelValues(component, reason).Inc()
}

// RecordDedup increments the suppressed duplicate request counter
func (r *Runtime) RecordDedup(component string) {
	if r == nil {
		return
	}
	r.RequestsDeduped.WithLabelValues(component).Inc()
}

// ObserveReducer records reducer execution time
func (r *Runtime) ObserveReducer(component, sink string, duration time.Duration) {
	if r == nil {
		return
	}
	r.ReducerDuration.WithLabelValues(component, sink).Observe(duration.Seconds())
}
