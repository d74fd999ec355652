// Package metrics collects and exposes Prometheus metrics of the API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what the service layer records into
type MetricsCollector interface {
	RecordReportSubmitted()
	RecordModeration(status string)
	RecordUpload(ok bool)
	RecordSignIn(method string)
	RecordOTPSent()
}

// Collector is the Prometheus implementation of MetricsCollector
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reports         prometheus.Counter
	moderations     *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	signIns         *prometheus.CounterVec
	otpSent         prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadstatus_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadstatus_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roadstatus_reports_submitted_total",
			Help: "Road reports accepted",
		}),
		moderations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadstatus_report_moderations_total",
			Help: "Moderation status changes by target status",
		}, []string{"status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadstatus_photo_uploads_total",
			Help: "Photo uploads by result",
		}, []string{"result"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadstatus_sign_ins_total",
			Help: "Successful sign-ins by method",
		}, []string{"method"}),
		otpSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roadstatus_otp_sent_total",
			Help: "Phone one-time passwords sent",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.reports,
		c.moderations,
		c.uploads,
		c.signIns,
		c.otpSent,
	)

	return c
}

// RecordReportSubmitted counts an accepted report
func (c *Collector) RecordReportSubmitted() {
	c.reports.Inc()
}

// RecordModeration counts a status change
func (c *Collector) RecordModeration(status string) {
	c.moderations.WithLabelValues(status).Inc()
}

// RecordUpload counts a photo upload attempt
func (c *Collector) RecordUpload(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.uploads.WithLabelValues(result).Inc()
}

// RecordSignIn counts a sign-in ("password", "otp", "google", "facebook", "refresh")
func (c *Collector) RecordSignIn(method string) {
	c.signIns.WithLabelValues(method).Inc()
}

// RecordOTPSent counts a sent one-time password
func (c *Collector) RecordOTPSent() {
	c.otpSent.Inc()
}

// Middleware records request counts and latency under the chi route pattern
// so path parameters do not explode label cardinality
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		c.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every record; used where metrics are not wired
type Nop struct{}

func (Nop) RecordReportSubmitted()  {}
func (Nop) RecordModeration(string) {}
func (Nop) RecordUpload(bool)       {}
func (Nop) RecordSignIn(string)     {}
func (Nop) RecordOTPSent()          {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
