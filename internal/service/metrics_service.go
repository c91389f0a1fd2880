package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and payroll runs.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	computationDuration  *prometheus.HistogramVec
	computationTotal     *prometheus.CounterVec
	incentivesCreated    *prometheus.CounterVec
	incentivesPaid       prometheus.Counter
	confirmationsCounter *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	computationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payroll_computation_duration_seconds",
		Help:    "Duration of payroll computations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	computationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_computations_total",
		Help: "Total number of payroll computations",
	}, []string{"operation"})

	incentivesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_incentives_created_total",
		Help: "Incentive records created, by type",
	}, []string{"type"})

	incentivesPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payroll_incentives_paid_total",
		Help: "Incentive records moved from unpaid to paid",
	})

	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_confirmations_total",
		Help: "Payment confirmation transitions, by resulting status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, computationDuration, computationTotal, incentivesCreated, incentivesPaid, confirmations, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		computationDuration:  computationDuration,
		computationTotal:     computationTotal,
		incentivesCreated:    incentivesCreated,
		incentivesPaid:       incentivesPaid,
		confirmationsCounter: confirmations,
	}
}

// Registry exposes the underlying registry (used by tests).
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObservePayrollComputation records one read-side computation.
func (m *MetricsService) ObservePayrollComputation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.computationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.computationTotal.WithLabelValues(operation).Inc()
}

// AddIncentivesCreated counts persisted incentives.
func (m *MetricsService) AddIncentivesCreated(kind models.IncentiveType, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.incentivesCreated.WithLabelValues(string(kind)).Add(float64(n))
}

// AddIncentivesPaid counts incentives settled by a mark-paid call.
func (m *MetricsService) AddIncentivesPaid(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.incentivesPaid.Add(float64(n))
}

// IncConfirmation counts a confirmation reaching status.
func (m *MetricsService) IncConfirmation(status models.ConfirmationStatus) {
	if m == nil {
		return
	}
	m.confirmationsCounter.WithLabelValues(string(status)).Inc()
}
