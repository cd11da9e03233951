package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewConsoleMetricsWithRegisterer(reg)
	second := NewConsoleMetricsWithRegisterer(reg)

	first.RecordDashboardBuild(10)
	second.RecordDashboardBuild(25)

	// Повторная регистрация возвращает уже существующие коллекторы.
	assert.Equal(t, float64(2), testutil.ToFloat64(first.dashboardBuilds))
	assert.Equal(t, float64(25), testutil.ToFloat64(first.dashboardRevenue))
}

func TestObserveUpstream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsoleMetricsWithRegisterer(reg)

	m.ObserveUpstream("api", "GET", 200, 15*time.Millisecond)
	m.ObserveUpstream("api", "GET", 200, 20*time.Millisecond)
	m.ObserveUpstream("auth", "POST", 0, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.upstreamRequests.WithLabelValues("api", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamRequests.WithLabelValues("auth", "POST", "0")))

	count, err := testutil.GatherAndCount(reg, "crm_upstream_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Гистограмма api: два наблюдения, сумма 35ms.
	histogram, ok := m.upstreamDuration.WithLabelValues("api").(prometheus.Metric)
	require.True(t, ok)
	metric := &dto.Metric{}
	require.NoError(t, histogram.Write(metric))
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.035, metric.GetHistogram().GetSampleSum(), 1e-9)
}

func TestRecordCounters(t *testing.T) {
	m := NewConsoleMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordDegradedLoad("users")
	m.RecordDegradedLoad("users")
	m.RecordRefusedEdit("locked")
	m.RecordActivity("order", "cancelled")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.degradedLoads.WithLabelValues("users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.refusedEdits.WithLabelValues("locked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activityTotal.WithLabelValues("order", "cancelled")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *ConsoleMetrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("api", "GET", 200, time.Millisecond)
		m.RecordDashboardBuild(1)
		m.RecordDegradedLoad("products")
		m.RecordRefusedEdit("locked")
		m.RecordActivity("product", "created")
	})
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsoleMetricsWithRegisterer(reg)

	m.RecordOutboxAttempt("sent")
	m.RecordOutboxAttempt("sent")
	m.RecordOutboxAttempt("retry_error")
	m.SetOutboxBacklog(3, 90*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outboxAttempts.WithLabelValues("sent")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.outboxPending))
	assert.Equal(t, float64(90), testutil.ToFloat64(m.outboxOldestAge))

	m.SetOutboxBacklog(0, -time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.outboxOldestAge))

	m.RecordOutboxCleanup("ok", 4)
	m.RecordOutboxCleanup("ok", 0)
	m.RecordOutboxCleanup("error", 0)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cleanupRuns.WithLabelValues("ok")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.cleanupDeleted))

	var nilMetrics *ConsoleMetrics
	assert.NotPanics(t, func() { nilMetrics.RecordOutboxCleanup("ok", 1) })
}
