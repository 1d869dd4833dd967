package domain

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by stores when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// PersistentStore is the durable home of survey sessions and their submission log.
// Mutations go through UpdateSession so backends can snapshot after each change.
type PersistentStore interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, bool, error)
	UpdateSession(ctx context.Context, id string, mutator func(*Session) error) (Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
	ListSessions(ctx context.Context) ([]Session, error)
	RecordAttempt(ctx context.Context, attempt SubmissionAttempt) error
	ListAttempts(ctx context.Context, sessionID string) ([]SubmissionAttempt, error)
	Close() error
}
