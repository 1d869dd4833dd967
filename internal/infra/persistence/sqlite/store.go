// Package sqlite persists the in-memory session store to a single SQLite table
// as JSON blobs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"smarthika/internal/infra/persistence/memory"
	"smarthika/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "smarthika.db"

// Store snapshots the full state after every successful mutation.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := snapshot.DecodeBucket(bucket, payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	buckets, err := s.ExportState().EncodeBuckets()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// errUnchanged tells mutate that apply left the state as it was.
var errUnchanged = errors.New("state unchanged")

// mutate applies a change to the in-memory state and snapshots it. Mutations
// are serialized, and a failed snapshot restores the state from before the
// change so memory never runs ahead of the database.
func (s *Store) mutate(ctx context.Context, apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.ExportState()
	if err := apply(); errors.Is(err, errUnchanged) {
		return nil
	} else if err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		s.ImportState(before)
		return err
	}
	return nil
}

// CreateSession stores the session and snapshots.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	var out domain.Session
	err := s.mutate(ctx, func() (err error) {
		out, err = s.Store.CreateSession(ctx, session)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

// UpdateSession applies mutator and snapshots.
func (s *Store) UpdateSession(ctx context.Context, id string, mutator func(*domain.Session) error) (domain.Session, error) {
	var out domain.Session
	err := s.mutate(ctx, func() (err error) {
		out, err = s.Store.UpdateSession(ctx, id, mutator)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

// DeleteSession removes the session and snapshots.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.mutate(ctx, func() (err error) {
		ok, err = s.Store.DeleteSession(ctx, id)
		if err == nil && !ok {
			return errUnchanged
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// RecordAttempt appends to the submission log and snapshots.
func (s *Store) RecordAttempt(ctx context.Context, attempt domain.SubmissionAttempt) error {
	return s.mutate(ctx, func() error {
		return s.Store.RecordAttempt(ctx, attempt)
	})
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
