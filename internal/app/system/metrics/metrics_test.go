package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.Login("password", nil)
	m.Login("password", errors.New("wrong"))
	m.Login("pin", nil)
	m.Join("waitlisted")
	m.Push("reminder", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("password", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("password", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventJoins.WithLabelValues("waitlisted")))

	done := m.StreamOpened("events")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveStreams.WithLabelValues("events")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LiveStreams.WithLabelValues("events")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Login("pin", nil)
	m.Join("joined")
	m.Push("new_event", nil)
	m.StreamOpened("chat")()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/events/{id}", "GET", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "maratech_http_requests_total"))
}
