package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutMetrics_NilIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("success", "", time.Second)
		m.ObserveReferenceCheck("available")
		m.ObserveDiscountValidation("granted")
	})
}

func TestCheckoutMetrics_Counts(t *testing.T) {
	m := NewCheckoutMetrics(prometheus.NewRegistry())

	m.ObserveSubmission("failed", "collision", 20*time.Millisecond)
	m.ObserveSubmission("failed", "collision", 30*time.Millisecond)
	m.ObserveSubmission("success", "", 10*time.Millisecond)
	m.ObserveReferenceCheck("taken")
	m.ObserveDiscountValidation("invalid")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("failed", "collision")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReferenceChecks.WithLabelValues("taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscountValidations.WithLabelValues("invalid")))
}

func TestServerMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/items/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))
}
