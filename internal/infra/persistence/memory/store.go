// Package memory provides an in-memory implementation of the session store used
// for tests and ephemeral environments. The sqlite and postgres backends embed it
// and snapshot its state after every mutation.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"smarthika/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Session aliases domain.Session.
	Session = domain.Session
	// SubmissionAttempt aliases domain.SubmissionAttempt.
	SubmissionAttempt = domain.SubmissionAttempt
)

// Bucket names used when a snapshot is split into rows.
const (
	BucketSessions = "sessions"
	BucketAttempts = "attempts"
)

// Buckets lists snapshot buckets in persistence order.
var Buckets = []string{BucketSessions, BucketAttempts}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Sessions map[string]Session `json:"sessions"`
	Attempts []SubmissionAttempt `json:"attempts"`
}

// Store keeps sessions and submission attempts in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	attempts []SubmissionAttempt
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// CreateSession stores a new session. The id must be unique.
func (s *Store) CreateSession(_ context.Context, session Session) (Session, error) {
	if session.ID == "" {
		return Session{}, fmt.Errorf("session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return Session{}, fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return session.Clone(), nil
}

// GetSession returns a copy of the session.
func (s *Store) GetSession(_ context.Context, id string) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	return sess.Clone(), true, nil
}

// UpdateSession applies mutator to a copy of the session and stores the result
// only when the mutator succeeds.
func (s *Store) UpdateSession(_ context.Context, id string, mutator func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Session{}, err
	}
	working.ID = id
	s.sessions[id] = working
	return working.Clone(), nil
}

// DeleteSession removes the session and its attempts.
func (s *Store) DeleteSession(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	delete(s.sessions, id)
	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.SessionID != id {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return true, nil
}

// ListSessions returns sessions ordered by creation time, then id.
func (s *Store) ListSessions(_ context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RecordAttempt appends to the submission log.
func (s *Store) RecordAttempt(_ context.Context, attempt SubmissionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[attempt.SessionID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, attempt.SessionID)
	}
	s.attempts = append(s.attempts, attempt)
	return nil
}

// ListAttempts returns the attempts for one session in the order they were recorded.
func (s *Store) ListAttempts(_ context.Context, sessionID string) ([]SubmissionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SubmissionAttempt, 0)
	for _, a := range s.attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of the store contents.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Sessions: make(map[string]Session, len(s.sessions)),
		Attempts: append([]SubmissionAttempt{}, s.attempts...),
	}
	for id, sess := range s.sessions {
		snap.Sessions[id] = sess.Clone()
	}
	return snap
}

// ImportState replaces the store contents with snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]Session, len(snapshot.Sessions))
	for id, sess := range snapshot.Sessions {
		s.sessions[id] = sess.Clone()
	}
	s.attempts = append([]SubmissionAttempt{}, snapshot.Attempts...)
}

// EncodeBuckets serializes each snapshot bucket as JSON.
func (snap Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketSessions:
			sessions := snap.Sessions
			if sessions == nil {
				sessions = map[string]Session{}
			}
			data, err = json.Marshal(sessions)
		case BucketAttempts:
			attempts := snap.Attempts
			if attempts == nil {
				attempts = []SubmissionAttempt{}
			}
			data, err = json.Marshal(attempts)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket loads one bucket payload into the snapshot. Unknown buckets are ignored.
func (snap *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case BucketSessions:
		target = &snap.Sessions
	case BucketAttempts:
		target = &snap.Attempts
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
