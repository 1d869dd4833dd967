package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthika/pkg/domain"
)

func TestUnconfiguredEndpointSkipsNetwork(t *testing.T) {
	var hits int32
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&hits, 1)
		return nil, errors.New("unexpected call")
	})
	for _, endpoint := range []string{"", "   ", "https://script.google.com/macros/s/YOUR_SCRIPT_ID/exec", "REPLACE_ME", "<webhook-url>"} {
		tr := New(endpoint, WithHTTPClient(&http.Client{Transport: rt}))
		out := tr.SubmitToGoogleSheets(context.Background(), "s1", domain.DefaultRecord())
		assert.False(t, out.Success, endpoint)
		assert.Equal(t, ErrNotConfigured, out.Error, endpoint)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSubmitPostsPlainTextRecord(t *testing.T) {
	var (
		gotType string
		payload map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		// the web-hook's answer is irrelevant
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("script error"))
	}))
	defer srv.Close()

	fixed := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	var observed []domain.Outcome
	tr := New(srv.URL,
		WithClock(func() time.Time { return fixed }),
		WithObserver(func(o domain.Outcome, _ time.Duration) { observed = append(observed, o) }),
	)
	rec := domain.DefaultRecord()
	rec.Profile.CustomerName = "Meena"

	out := tr.Submit(context.Background(), "sess-9", rec)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, "text/plain;charset=utf-8", gotType)
	for _, id := range domain.Modules {
		assert.Contains(t, payload, string(id))
	}
	assert.JSONEq(t, `"2024-03-02T09:30:00Z"`, string(payload["submittedAt"]))
	assert.JSONEq(t, `"sess-9"`, string(payload["sessionId"]))
	require.Len(t, observed, 1)
	assert.True(t, observed[0].Success)
}

func TestSubmitTransportErrorIsOutcome(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	tr := New("https://example.invalid/hook", WithHTTPClient(&http.Client{Transport: rt}))
	out := tr.SubmitToGoogleSheets(context.Background(), "s", domain.DefaultRecord())
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "connection refused")
}

func TestSubmitHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := New(srv.URL, WithTimeout(20*time.Millisecond))
	out := tr.SubmitToGoogleSheets(context.Background(), "s", domain.DefaultRecord())
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, IsConfigured("https://script.google.com/macros/s/abc/exec"))
	assert.False(t, IsConfigured("https://script.google.com/macros/s/<id>/exec"))
	assert.True(t, New(" https://hook.example ").Configured())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
