package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the group
// cache and billing events.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	activations     *prometheus.CounterVec
	paymentsCreated prometheus.Counter
	paymentAmount   prometheus.Counter
	freezes         *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	refundAmount    prometheus.Counter
	notifyFailures  *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_activations_total",
			Help: "Enrollment activations by proration outcome",
		}, []string{"prorated"}),
		paymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_payments_created_total",
			Help: "Payments created on activation",
		}),
		paymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_payment_amount_total",
			Help: "Sum of amounts of payments created on activation",
		}),
		freezes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_freezes_total",
			Help: "Freeze transitions by resulting status",
		}, []string{"status"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_refunds_total",
			Help: "Refund requests by resulting status",
		}, []string{"status"}),
		refundAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_refund_amount_approved_total",
			Help: "Sum of approved refund amounts",
		}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_notification_failures_total",
			Help: "Notifications that could not be delivered",
		}, []string{"event"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheLookups,
		m.activations, m.paymentsCreated, m.paymentAmount, m.freezes, m.refunds, m.refundAmount, m.notifyFailures,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// RecordCacheLookup records a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordActivation counts an activation and the payment it produced, if any.
func (m *MetricsService) RecordActivation(prorated bool, payment *decimal.Decimal) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(fmt.Sprintf("%t", prorated)).Inc()
	if payment != nil {
		m.paymentsCreated.Inc()
		m.paymentAmount.Add(payment.InexactFloat64())
	}
}

// RecordFreeze counts a freeze transition.
func (m *MetricsService) RecordFreeze(status string) {
	if m == nil {
		return
	}
	m.freezes.WithLabelValues(status).Inc()
}

// RecordRefund counts a refund transition; amount is added for approvals.
func (m *MetricsService) RecordRefund(status string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(status).Inc()
	if status == "APPROVED" {
		m.refundAmount.Add(amount.InexactFloat64())
	}
}

// RecordNotificationFailure counts an undelivered notification.
func (m *MetricsService) RecordNotificationFailure(event string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(event).Inc()
}
