package service

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/coursework/internal/domain"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeSaga(SagaEnroll, time.Now(), nil)
	m.observeSaga(SagaEnroll, time.Now(), domain.NewValidationError("course_id", "is full", nil))
	m.observeSaga(SagaEnroll, time.Now(), errors.New("disk"))
	m.addNotifications(3)
	m.cacheLookup(true)
	m.cacheLookup(false)
	m.cacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagas.WithLabelValues(SagaEnroll, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagas.WithLabelValues(SagaEnroll, "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagas.WithLabelValues(SagaEnroll, "infrastructure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"coursework_workflow_runs_total",
		"coursework_workflow_duration_seconds",
		"coursework_fanout_notifications_total",
		"coursework_inbox_unread_cache_lookups_total",
	}, names)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeSaga(SagaLogin, time.Now(), nil)
		m.addNotifications(1)
		m.cacheLookup(true)
	})

	assert.NotPanics(t, func() { NewMetrics(nil).addNotifications(1) })
}
