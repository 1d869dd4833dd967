// Package location resolves Indian state and district names for the profile
// step, backed by a public JSON source with a static fallback.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StateEntry is one state and its districts.
type StateEntry struct {
	State     string   `json:"state"`
	Districts []string `json:"districts"`
}

// Directory is the full state to district listing.
type Directory []StateEntry

// Clone returns a deep copy.
func (d Directory) Clone() Directory {
	if d == nil {
		return nil
	}
	out := make(Directory, len(d))
	for i, e := range d {
		out[i] = StateEntry{State: e.State, Districts: append([]string(nil), e.Districts...)}
	}
	return out
}

// States lists state names in source order.
func (d Directory) States() []string {
	out := make([]string, 0, len(d))
	for _, e := range d {
		out = append(out, e.State)
	}
	return out
}

// Districts returns the districts of state, matched case-insensitively. Unknown
// states yield an empty, non-nil slice.
func (d Directory) Districts(state string) []string {
	want := strings.ToLower(strings.TrimSpace(state))
	for _, e := range d {
		if strings.ToLower(strings.TrimSpace(e.State)) == want {
			return append([]string{}, e.Districts...)
		}
	}
	return []string{}
}

// DecodeDirectory accepts either {"states":[{"state":..,"districts":[..]}]} or a
// plain {"State":["District", ...]} object.
func DecodeDirectory(raw []byte) (Directory, error) {
	var wrapped struct {
		States Directory `json:"states"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.States) > 0 {
		return wrapped.States, nil
	}
	var byState map[string][]string
	if err := json.Unmarshal(raw, &byState); err != nil {
		return nil, fmt.Errorf("decode location directory: %w", err)
	}
	names := make([]string, 0, len(byState))
	for name := range byState {
		names = append(names, name)
	}
	sort.Strings(names)
	dir := make(Directory, 0, len(names))
	for _, name := range names {
		dir = append(dir, StateEntry{State: name, Districts: byState[name]})
	}
	if len(dir) == 0 {
		return nil, fmt.Errorf("decode location directory: no states")
	}
	return dir, nil
}

// Event names passed to the observer.
const (
	EventCacheHit = "cache_hit"
	EventFetched  = "fetched"
	EventFallback = "fallback"
)

const cacheKey = "directory"

// Service fetches and caches the directory.
type Service struct {
	source  string
	client  *http.Client
	cache   Cache
	timeout time.Duration
	logger  *zap.Logger
	observe func(event string)
	group   singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithCache replaces the default in-process LRU cache.
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds one source fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers a callback for cache hits, fetches and fallbacks.
func WithObserver(fn func(event string)) Option {
	return func(s *Service) { s.observe = fn }
}

// NewService returns a lookup service for source. An empty source always falls back.
func NewService(source string, opts ...Option) *Service {
	s := &Service{
		source:  strings.TrimSpace(source),
		client:  &http.Client{},
		cache:   NewLRUCache(1, DefaultTTL),
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FetchStates returns the cached state list after the first successful fetch.
// On failure the static fallback list is returned for this call only.
func (s *Service) FetchStates(ctx context.Context) []string {
	dir, err := s.directory(ctx)
	if err != nil {
		s.logger.Warn("location fetch failed, using fallback states", zap.Error(err))
		s.emit(EventFallback)
		return FallbackStates()
	}
	return dir.States()
}

// FetchDistricts returns the districts for state, or an empty list when the
// state is unknown or the source cannot be reached.
func (s *Service) FetchDistricts(ctx context.Context, state string) []string {
	dir, err := s.directory(ctx)
	if err != nil {
		s.logger.Warn("location fetch failed, no districts", zap.String("state", state), zap.Error(err))
		s.emit(EventFallback)
		return []string{}
	}
	return dir.Districts(state)
}

func (s *Service) directory(ctx context.Context) (Directory, error) {
	if dir, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
		s.logger.Warn("location cache read failed", zap.Error(err))
	} else if ok {
		s.emit(EventCacheHit)
		return dir, nil
	}
	// The shared fetch outlives any one caller; fetch bounds it with s.timeout.
	ch := s.group.DoChan(cacheKey, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		dir, err := s.fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(shared, cacheKey, dir); err != nil {
			s.logger.Warn("location cache write failed", zap.Error(err))
		}
		s.emit(EventFetched)
		return dir, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Directory).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetch(ctx context.Context) (Directory, error) {
	if s.source == "" {
		return nil, fmt.Errorf("location source not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location source returned %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return DecodeDirectory(raw)
}

func (s *Service) emit(event string) {
	if s.observe != nil {
		s.observe(event)
	}
}
