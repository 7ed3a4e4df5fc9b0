package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SchedulerMetrics tracks the per-subscription job engine: how many jobs are
// ticking, how their ticks end, and how many live listeners are connected.
type SchedulerMetrics struct {
	ActiveJobs    prometheus.Gauge
	Ticks         *prometheus.CounterVec
	SinkFailures  *prometheus.CounterVec
	LiveListeners prometheus.Gauge
}

var globalSchedulerMetrics *SchedulerMetrics

// NewSchedulerMetrics returns the process-wide scheduler metrics collector.
// Collectors register with the default prometheus registry once.
func NewSchedulerMetrics() *SchedulerMetrics {
	if globalSchedulerMetrics == nil {
		globalSchedulerMetrics = &SchedulerMetrics{
			ActiveJobs: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "weatherpush_scheduler_active_jobs",
				Help: "The number of subscription jobs currently scheduled",
			}),
			Ticks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weatherpush_scheduler_ticks_total",
					Help: "The total number of job ticks by result",
				},
				[]string{"result"},
			),
			SinkFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weatherpush_scheduler_sink_failures_total",
					Help: "The total number of failed deliveries by sink",
				},
				[]string{"sink"},
			),
			LiveListeners: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "weatherpush_live_listeners",
				Help: "The number of currently connected live stream listeners",
			}),
		}
	}
	return globalSchedulerMetrics
}

// Tick result labels.
const (
	TickResultOK           = "ok"
	TickResultFetchError   = "fetch_error"
	TickResultPersistError = "persist_error"
)

// Sink labels for delivery failures.
const (
	SinkWebhook = "webhook"
	SinkEmail   = "email"
	SinkLive    = "live"
)
