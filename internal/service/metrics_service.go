package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the issuance pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	issuedTotal     *prometheus.CounterVec
	failedTotal     *prometheus.CounterVec
	emailsSent      prometheus.Counter
	renderDuration  prometheus.Histogram
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

	issuedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Total certificates issued",
	}, []string{"program"})

	failedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificate_failures_total",
		Help: "Total per-participant issuance failures",
	}, []string{"program"})

	emailsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificate_emails_sent_total",
		Help: "Total certificate emails delivered",
	})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdf_render_seconds",
		Help:    "Duration of certificate HTML to PDF rendering",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, issuedTotal, failedTotal, emailsSent, renderDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		issuedTotal:     issuedTotal,
		failedTotal:     failedTotal,
		emailsSent:      emailsSent,
		renderDuration:  renderDuration,
	}
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

// CertificateIssued counts a successfully persisted certificate.
func (m *MetricsService) CertificateIssued(programCode string) {
	if m == nil {
		return
	}
	m.issuedTotal.WithLabelValues(programCode).Inc()
}

// CertificateFailed counts a per-participant issuance failure.
func (m *MetricsService) CertificateFailed(programCode string) {
	if m == nil {
		return
	}
	m.failedTotal.WithLabelValues(programCode).Inc()
}

// CertificateEmailSent counts a delivered certificate email.
func (m *MetricsService) CertificateEmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

// ObserveRenderDuration records the time spent rendering one certificate PDF.
func (m *MetricsService) ObserveRenderDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}
