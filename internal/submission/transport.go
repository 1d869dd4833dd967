// Package submission posts completed survey records to the spreadsheet web-hook.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"smarthika/pkg/domain"
)

// ErrNotConfigured is the outcome message when the web-hook URL is missing or a placeholder.
const ErrNotConfigured = "Google Sheets URL is not configured"

// DefaultTimeout bounds one web-hook call.
const DefaultTimeout = 30 * time.Second

// Transport sends records to a Google Apps Script style web-hook. The endpoint
// only accepts simple cross-origin requests, so the body goes out as text/plain
// and the response is never read for meaning.
type Transport struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	observe  func(domain.Outcome, time.Duration)
}

// Option customizes a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the submittedAt time source.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithObserver registers a callback invoked after every attempt.
func WithObserver(fn func(domain.Outcome, time.Duration)) Option {
	return func(t *Transport) { t.observe = fn }
}

// New constructs a transport for endpoint.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Configured reports whether the endpoint looks usable.
func (t *Transport) Configured() bool { return IsConfigured(t.endpoint) }

// IsConfigured rejects empty endpoints and the placeholders left in sample env files.
func IsConfigured(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return false
	}
	for _, marker := range []string{"YOUR_", "REPLACE_ME", "<"} {
		if strings.Contains(endpoint, marker) {
			return false
		}
	}
	return true
}

// Payload is the body posted to the web-hook: every module of the record plus
// submission metadata.
type Payload struct {
	domain.Record
	SubmittedAt time.Time `json:"submittedAt"`
	SessionID   string    `json:"sessionId,omitempty"`
}

// Submit implements core.Submitter.
func (t *Transport) Submit(ctx context.Context, sessionID string, rec domain.Record) domain.Outcome {
	return t.SubmitToGoogleSheets(ctx, sessionID, rec)
}

// SubmitToGoogleSheets posts rec once. It never returns an error: every failure
// is folded into the Outcome. Success means the request completed without a
// transport error; the web-hook's status and body are drained unread.
func (t *Transport) SubmitToGoogleSheets(ctx context.Context, sessionID string, rec domain.Record) (out domain.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome{Error: fmt.Sprintf("submission failed: %v", r)}
		}
		if t.observe != nil {
			t.observe(out, time.Since(start))
		}
	}()
	if !t.Configured() {
		t.logger.Warn("submission endpoint not configured")
		return domain.Outcome{Error: ErrNotConfigured}
	}
	body, err := json.Marshal(Payload{Record: rec, SubmittedAt: t.now(), SessionID: sessionID})
	if err != nil {
		return domain.Outcome{Error: fmt.Sprintf("encode submission: %v", err)}
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Outcome{Error: fmt.Sprintf("build submission request: %v", err)}
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("submission request failed", zap.String("session", sessionID), zap.Error(err))
		return domain.Outcome{Error: fmt.Sprintf("submission request failed: %v", err)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	t.logger.Info("submission sent",
		zap.String("session", sessionID),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return domain.Outcome{Success: true}
}
