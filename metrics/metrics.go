package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inefablestore"

// ServerMetrics counts HTTP traffic per route
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics registers the HTTP metrics on reg
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware records one observation per request, labelled with the chi route pattern
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// CheckoutMetrics counts checkout engine outcomes. A nil *CheckoutMetrics is valid and
// records nothing.
type CheckoutMetrics struct {
	Submissions         *prometheus.CounterVec
	SubmitLatencyMS     prometheus.Histogram
	ReferenceChecks     *prometheus.CounterVec
	DiscountValidations *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on reg
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome", "kind"}),
		SubmitLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "submit_duration_ms",
			Help:      "Order submission round trip in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000},
		}),
		ReferenceChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "reference_checks_total",
			Help:      "Payment reference uniqueness checks by result.",
		}, []string{"result"}),
		DiscountValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "discount_validations_total",
			Help:      "Discount code validations by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Submissions, m.SubmitLatencyMS, m.ReferenceChecks, m.DiscountValidations)
	return m
}

// ObserveSubmission records a finished submission
func (m *CheckoutMetrics) ObserveSubmission(outcome, kind string, took time.Duration) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome, kind).Inc()
	m.SubmitLatencyMS.Observe(float64(took.Milliseconds()))
}

// ObserveReferenceCheck records a reference check result
func (m *CheckoutMetrics) ObserveReferenceCheck(result string) {
	if m == nil {
		return
	}
	m.ReferenceChecks.WithLabelValues(result).Inc()
}

// ObserveDiscountValidation records a discount validation result
func (m *CheckoutMetrics) ObserveDiscountValidation(result string) {
	if m == nil {
		return
	}
	m.DiscountValidations.WithLabelValues(result).Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
