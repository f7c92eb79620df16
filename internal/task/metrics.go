package task

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatcher activity.
type Metrics struct {
	tasks     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queueWait prometheus.Histogram
	inFlight  prometheus.Gauge
}

// NewMetrics creates the dispatcher metrics and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursework",
			Subsystem: "dispatcher",
			Name:      "tasks_total",
			Help:      "Dispatched tasks by name and terminal status.",
		}, []string{"task", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coursework",
			Subsystem: "dispatcher",
			Name:      "task_duration_seconds",
			Help:      "Time spent executing work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coursework",
			Subsystem: "dispatcher",
			Name:      "queue_wait_seconds",
			Help:      "Time between admission and the start of execution.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coursework",
			Subsystem: "dispatcher",
			Name:      "tasks_in_flight",
			Help:      "Tasks admitted but not yet finished.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.tasks, m.duration, m.queueWait, m.inFlight)
	}
	return m
}

func (m *Metrics) admitted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) rejected(name string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(name, string(StatusRejected)).Inc()
}

func (m *Metrics) started(enqueuedAt time.Time) {
	if m == nil {
		return
	}
	m.queueWait.Observe(time.Since(enqueuedAt).Seconds())
}

func (m *Metrics) finished(name string, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.tasks.WithLabelValues(name, string(status)).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}
