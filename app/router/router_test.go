package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2eliot/Inefablestore/app/controller"
	"github.com/2eliot/Inefablestore/checkout"
	"github.com/2eliot/Inefablestore/metrics"
)

func TestRouter_PingAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewRouter(&Controllers{}, Options{
		Metrics:        metrics.NewServerMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inefablestore_http_requests_total{route="/ping",status="200"} 1`)
}

func TestRouter_RemoteModeServesOnlyCheckout(t *testing.T) {
	cc := controller.NewCheckoutController(checkout.NewSessionRegistry(10, time.Hour), checkout.Deps{}, time.Hour, false)
	h := NewRouter(&Controllers{Checkout: cc}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/rate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/0/confirm", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
