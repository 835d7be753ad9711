// Package metrics содержит Prometheus-метрики сервиса: HTTP, БД и бизнес-счётчики.
// Все методы безопасны для nil-получателя, поэтому при выключенных метриках
// в слои можно передавать nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор метрик сервиса
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec
	dbOpenConns     prometheus.Gauge
	dbInUseConns    prometheus.Gauge
	dbIdleConns     prometheus.Gauge
	dbWaitCount     prometheus.Gauge

	reconciliations      *prometheus.CounterVec
	illegalTransitions   *prometheus.CounterVec
	notificationFailures prometheus.Counter
	signatureRepairs     *prometheus.CounterVec
	amountMismatches     prometheus.Counter
	outboxDeliveries     *prometheus.CounterVec
}

// New регистрирует метрики в глобальном реестре Prometheus
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry регистрирует метрики в переданном реестре
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		dbQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Total number of failed database queries",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		dbOpenConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_open_connections", Help: "Open connections in the pool", ConstLabels: constLabels,
		}),
		dbInUseConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_in_use_connections", Help: "Connections currently in use", ConstLabels: constLabels,
		}),
		dbIdleConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_idle_connections", Help: "Idle connections in the pool", ConstLabels: constLabels,
		}),
		dbWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_wait_count", Help: "Total number of connections waited for", ConstLabels: constLabels,
		}),

		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "reservation_reconciliations_total",
			Help:        "Payment callbacks reconciled, by aggregate kind and outcome",
			ConstLabels: constLabels,
		}, []string{"kind", "outcome"}),
		illegalTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "reservation_illegal_transitions_total",
			Help:        "Lifecycle transitions rejected by the state machine",
			ConstLabels: constLabels,
		}, []string{"source"}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reservation_notification_failures_total",
			Help:        "Notifications that could not be enqueued",
			ConstLabels: constLabels,
		}),
		signatureRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "reservation_signature_repairs_total",
			Help:        "Stale integrity signatures regenerated on read",
			ConstLabels: constLabels,
		}, []string{"aggregate"}),
		amountMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reservation_amount_mismatch_total",
			Help:        "Callbacks whose reported amount differs from the derived total",
			ConstLabels: constLabels,
		}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "reservation_outbox_deliveries_total",
			Help:        "Outbox relay delivery attempts by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequestsTotal, m.httpRequestDuration,
		m.dbQueryDuration, m.dbQueryErrors,
		m.dbOpenConns, m.dbInUseConns, m.dbIdleConns, m.dbWaitCount,
		m.reconciliations, m.illegalTransitions, m.notificationFailures,
		m.signatureRepairs, m.amountMismatches, m.outboxDeliveries,
	)

	return m
}

// ObserveHTTPRequest записывает результат HTTP запроса
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDBQuery записывает длительность запроса к БД
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetDBPoolStats обновляет метрики пула соединений
func (m *Metrics) SetDBPoolStats(open, inUse, idle int, waitCount int64) {
	if m == nil {
		return
	}
	m.dbOpenConns.Set(float64(open))
	m.dbInUseConns.Set(float64(inUse))
	m.dbIdleConns.Set(float64(idle))
	m.dbWaitCount.Set(float64(waitCount))
}

func (m *Metrics) IncReconciliation(kind, outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncIllegalTransition(source string) {
	if m == nil {
		return
	}
	m.illegalTransitions.WithLabelValues(source).Inc()
}

func (m *Metrics) IncNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

func (m *Metrics) IncSignatureRepair(aggregate string) {
	if m == nil {
		return
	}
	m.signatureRepairs.WithLabelValues(aggregate).Inc()
}

func (m *Metrics) IncAmountMismatch() {
	if m == nil {
		return
	}
	m.amountMismatches.Inc()
}

func (m *Metrics) IncOutboxDelivery(result string) {
	if m == nil {
		return
	}
	m.outboxDeliveries.WithLabelValues(result).Inc()
}
