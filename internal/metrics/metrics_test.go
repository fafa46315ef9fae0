package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveExtraction(t *testing.T) {
	m := New()
	m.ObserveExtraction(OutcomeSuccess, 2*time.Second, 10, 3)
	m.ObserveExtraction(OutcomeSuccess, time.Second, 5, 0)
	m.ObserveExtraction(OutcomeFailure, time.Second, 7, 7)

	if got := testutil.ToFloat64(m.extractions.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.extractions.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Errorf("failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.questions); got != 15 {
		t.Errorf("questions = %v, want 15", got)
	}
	if got := testutil.ToFloat64(m.images); got != 3 {
		t.Errorf("images = %v, want 3", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveExtraction(OutcomeSuccess, time.Second, 1, 1)

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("nil Metrics middleware should pass through")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil Handler status = %d, want 404", rec.Code)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	m.ObserveExtraction(OutcomeSkipped, 0, 0, 0)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/extractions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/api/v1/extractions/a", "/api/v1/extractions/b", "/health"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/extractions/{id}", "GET", "404")); got != 2 {
		t.Errorf("extraction route count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/health", "GET", "200")); got != 1 {
		t.Errorf("health count = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	for _, want := range []string{"revalida_http_requests_total", "revalida_extractions_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
