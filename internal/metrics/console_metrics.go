package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsoleMetrics содержит метрики BFF-консоли.
type ConsoleMetrics struct {
	// Вызовы upstream-сервисов
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	// Дашборд и загрузка коллекций
	dashboardBuilds  prometheus.Counter
	degradedLoads    *prometheus.CounterVec
	dashboardRevenue prometheus.Gauge

	// Заказы
	refusedEdits  *prometheus.CounterVec
	activityTotal *prometheus.CounterVec

	// Transactional outbox
	outboxAttempts  *prometheus.CounterVec
	outboxPending   prometheus.Gauge
	outboxOldestAge prometheus.Gauge
	cleanupRuns     *prometheus.CounterVec
	cleanupDeleted  prometheus.Counter
}

// NewConsoleMetrics создаёт метрики в DefaultRegisterer.
func NewConsoleMetrics() *ConsoleMetrics {
	return NewConsoleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewConsoleMetricsWithRegisterer создаёт метрики в указанном registry (удобно для тестов).
func NewConsoleMetricsWithRegisterer(registerer prometheus.Registerer) *ConsoleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ConsoleMetrics{
		upstreamRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_upstream_requests_total",
			Help: "Total number of upstream requests grouped by service, method and status code",
		}, []string{"service", "method", "code"}),
		upstreamDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "crm_upstream_request_duration_seconds",
			Help:    "Duration of upstream requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"service"}),
		dashboardBuilds: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_dashboard_builds_total",
			Help: "Total number of dashboard computations",
		}),
		degradedLoads: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_degraded_loads_total",
			Help: "Collections replaced with an empty list after a failed fetch",
		}, []string{"collection"}),
		dashboardRevenue: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "crm_dashboard_confirmed_revenue",
			Help: "Confirmed revenue reported by the last dashboard computation",
		}),
		refusedEdits: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_order_edits_refused_total",
			Help: "Order mutations refused before reaching the gateway",
		}, []string{"reason"}),
		activityTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_console_activity_total",
			Help: "Successful console mutations grouped by entity and action",
		}, []string{"entity", "action"}),
		outboxAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"}),
		outboxPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "crm_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		}),
		outboxOldestAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "crm_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}),
		cleanupRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_outbox_cleanup_runs_total",
			Help: "Total number of outbox retention runs grouped by result.",
		}, []string{"result"}),
		cleanupDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_outbox_cleanup_deleted_total",
			Help: "Total number of processed outbox records removed by retention.",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ObserveUpstream записывает результат вызова upstream. code=0 означает сетевую ошибку.
func (m *ConsoleMetrics) ObserveUpstream(service, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(service, method, strconv.Itoa(code)).Inc()
	m.upstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordDashboardBuild фиксирует построение дашборда и подтверждённую выручку.
func (m *ConsoleMetrics) RecordDashboardBuild(confirmedRevenue float64) {
	if m == nil {
		return
	}
	m.dashboardBuilds.Inc()
	m.dashboardRevenue.Set(confirmedRevenue)
}

// RecordDegradedLoad увеличивает счётчик коллекций, заменённых пустым списком.
func (m *ConsoleMetrics) RecordDegradedLoad(collection string) {
	if m == nil {
		return
	}
	m.degradedLoads.WithLabelValues(collection).Inc()
}

// RecordRefusedEdit увеличивает счётчик отклонённых изменений заказа.
func (m *ConsoleMetrics) RecordRefusedEdit(reason string) {
	if m == nil {
		return
	}
	m.refusedEdits.WithLabelValues(reason).Inc()
}

// RecordActivity увеличивает счётчик успешных действий консоли.
func (m *ConsoleMetrics) RecordActivity(entity, action string) {
	if m == nil {
		return
	}
	m.activityTotal.WithLabelValues(entity, action).Inc()
}

// RecordOutboxAttempt увеличивает счётчик попыток публикации outbox по результату.
func (m *ConsoleMetrics) RecordOutboxAttempt(result string) {
	if m == nil {
		return
	}
	m.outboxAttempts.WithLabelValues(result).Inc()
}

// SetOutboxBacklog обновляет размер backlog и возраст самой старой записи.
func (m *ConsoleMetrics) SetOutboxBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.outboxPending.Set(float64(pending))
	m.outboxOldestAge.Set(oldestAge.Seconds())
}

// RecordOutboxCleanup учитывает прогон очистки outbox и число удалённых записей.
func (m *ConsoleMetrics) RecordOutboxCleanup(result string, deleted int) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(result).Inc()
	if deleted > 0 {
		m.cleanupDeleted.Add(float64(deleted))
	}
}
