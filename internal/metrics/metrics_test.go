package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthika/pkg/domain"
)

func TestObserveCountsByResult(t *testing.T) {
	m := New(false)
	ctx := context.Background()
	m.Observe(ctx, "submit", true, 10*time.Millisecond)
	m.Observe(ctx, "submit", false, 5*time.Millisecond)
	m.Observe(ctx, "submit", false, 5*time.Millisecond)
	m.Observe(ctx, "", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("submit", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("submit", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operations, "smarthika_service_operations_total"))
}

func TestSubmissionAndLocationObservers(t *testing.T) {
	m := New(false)
	m.ObserveSubmission(domain.Outcome{Success: true}, time.Second)
	m.ObserveSubmission(domain.Outcome{Error: "boom"}, time.Second)
	m.ObserveLocation("fallback")
	m.ObserveLocation("fallback")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.location.WithLabelValues("fallback")))
}

func TestInstrumentHandlerAndExposition(t *testing.T) {
	m := New(true)
	h := m.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), func(*http.Request) string { return "/api/v1/sessions/{id}" })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/sessions/{id}", "418")))
	assert.Zero(t, testutil.ToFloat64(m.httpInFlight))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.True(t, strings.Contains(string(body), `smarthika_http_requests_total{method="GET",route="/api/v1/sessions/{id}",status="418"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
