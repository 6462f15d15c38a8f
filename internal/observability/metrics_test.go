package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	if !strings.Contains(body, "invoiceguard_duplicates_total 0") {
		t.Fatalf("expected body to contain invoiceguard_duplicates_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/v1/invoices/analyze")

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/analyze", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `invoiceguard_http_requests_total{code="418",route="/v1/invoices/analyze"} 1`)
	require.Contains(t, body, `invoiceguard_http_request_duration_seconds_bucket{route="/v1/invoices/analyze"`)
}

func TestObserveAnalysis(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAnalysis("low", "auto-approve", false, 2*time.Millisecond)
	metrics.ObserveAnalysis("medium", "reject", true, 0)

	body := scrape(t, metrics)
	require.Contains(t, body, `invoiceguard_verdicts_total{action="auto-approve",tier="low"} 1`)
	require.Contains(t, body, `invoiceguard_verdicts_total{action="reject",tier="medium"} 1`)
	require.Contains(t, body, "invoiceguard_duplicates_total 1")
	require.Contains(t, body, "invoiceguard_analysis_duration_seconds_count 1")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAnalysis("low", "auto-approve", false, time.Millisecond)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
