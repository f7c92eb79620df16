package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/coursework/internal/domain"
)

// Metrics records workflow outcomes.
type Metrics struct {
	sagas         *prometheus.CounterVec
	sagaDuration  *prometheus.HistogramVec
	notifications prometheus.Counter
	cacheLookups  *prometheus.CounterVec
}

// NewMetrics creates the workflow metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursework",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow runs by name and outcome.",
		}, []string{"saga", "outcome"}),
		sagaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coursework",
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "Workflow run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"saga"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursework",
			Subsystem: "fanout",
			Name:      "notifications_total",
			Help:      "Notifications created by fan-out.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursework",
			Subsystem: "inbox",
			Name:      "unread_cache_lookups_total",
			Help:      "Unread count cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.sagas, m.sagaDuration, m.notifications, m.cacheLookups)
	}
	return m
}

func (m *Metrics) observeSaga(saga string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	m.sagas.WithLabelValues(saga, outcome).Inc()
	m.sagaDuration.WithLabelValues(saga).Observe(time.Since(started).Seconds())
}

func (m *Metrics) addNotifications(n int) {
	if m == nil {
		return
	}
	m.notifications.Add(float64(n))
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}
