package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the orchestrator
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Event bus metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventsHandledTotal   *prometheus.CounterVec
	EventHandlerDuration *prometheus.HistogramVec
	EventsDeadLettered   *prometheus.CounterVec
	EventRetriesTotal    *prometheus.CounterVec

	// Saga metrics
	OrdersReservedTotal       prometheus.Counter
	OrdersFailedToReserve     prometheus.Counter
	TransactionsCompleted     *prometheus.CounterVec
	TransactionsFailed        *prometheus.CounterVec
	PickingTasksSubmitted     *prometheus.CounterVec
	DiscrepanciesDetected     prometheus.Counter
	AdjustmentsAppliedTotal   *prometheus.CounterVec
	ObserverPollsTotal        *prometheus.CounterVec
	ObserverPollErrorsTotal   *prometheus.CounterVec
	ExternalCallDuration      *prometheus.HistogramVec
	CircuitBreakerStateChange *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events published to the bus",
		}, []string{"event_type"}),
		EventsHandledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Total number of handler invocations by outcome",
		}, []string{"event_type", "handler", "outcome"}),
		EventHandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Event handler execution time",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"event_type", "handler"}),
		EventsDeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dead_lettered_total",
			Help:      "Total number of events routed to the dead letter path",
		}, []string{"event_type", "handler"}),
		EventRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_retries_total",
			Help:      "Total number of handler retries",
		}, []string{"event_type", "handler"}),
		OrdersReservedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_reserved_total",
			Help:      "Orders that reached RESERVED",
		}),
		OrdersFailedToReserve: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_to_reserve_total",
			Help:      "Orders that reached FAILED_TO_RESERVE",
		}),
		TransactionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_transactions_completed_total",
			Help:      "Completed inventory transactions by type",
		}, []string{"transaction_type"}),
		TransactionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_transactions_failed_total",
			Help:      "Failed inventory transactions by type",
		}, []string{"transaction_type"}),
		PickingTasksSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picking_tasks_submitted_total",
			Help:      "Picking tasks submitted to the execution system by outcome",
		}, []string{"outcome"}),
		DiscrepanciesDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_discrepancies_detected_total",
			Help:      "Inventory discrepancy events raised",
		}),
		AdjustmentsAppliedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_adjustments_applied_total",
			Help:      "Inventory adjustments applied by reason",
		}, []string{"reason"}),
		ObserverPollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_polls_total",
			Help:      "Observer polling cycles by observer name",
		}, []string{"observer"}),
		ObserverPollErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_poll_errors_total",
			Help:      "Observer polling cycles that ended in error",
		}, []string{"observer"}),
		ExternalCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of outbound calls to external systems",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"target", "operation"}),
		CircuitBreakerStateChange: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
	}
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
