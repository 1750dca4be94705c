// Package metrics exposes the Prometheus counters and histograms the
// processor and consumers update on their hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bzd_flux"

// Metrics bundles every collector this service registers. Call
// MustRegister(prometheus.DefaultRegisterer) once at startup.
type Metrics struct {
	TasksClaimed       prometheus.Counter
	TasksCompleted     prometheus.Counter
	TaskFanoutDuration prometheus.Histogram
	EntriesUpserted    prometheus.Counter
	ConsumerDispatched *prometheus.CounterVec
	ConsumerFailed     *prometheus.CounterVec
}

// New constructs the collector set without registering it.
func New() *Metrics {
	return &Metrics{
		TasksClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "tasks_claimed_total",
			Help:      "Total tasks claimed by this processor across all ticks.",
		}),
		TasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "tasks_completed_total",
			Help:      "Total tasks retired after their final fan-out page.",
		}),
		TaskFanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "task_fanout_duration_seconds",
			Help:      "Wall time of a single task's fan-out page, from claim to advance/complete.",
			Buckets:   prometheus.DefBuckets,
		}),
		EntriesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "entries_upserted_total",
			Help:      "Total entry upserts performed, including merges into existing rows.",
		}),
		ConsumerDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_dispatched_total",
			Help:      "Messages successfully decoded, dispatched, and acknowledged, by consumer.",
		}, []string{"consumer"}),
		ConsumerFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_failed_total",
			Help:      "Messages that failed decode or dispatch and were left unacknowledged, by consumer.",
		}, []string{"consumer"}),
	}
}

// MustRegister registers every collector against reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.TasksClaimed,
		m.TasksCompleted,
		m.TaskFanoutDuration,
		m.EntriesUpserted,
		m.ConsumerDispatched,
		m.ConsumerFailed,
	)
}
