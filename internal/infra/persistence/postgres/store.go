// Package postgres provides a Postgres-backed session store that mirrors the
// in-memory semantics and snapshots state into a JSONB table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"smarthika/internal/infra/persistence/memory"
	"smarthika/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/smarthika?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while serving reads from memory.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN),
// ensures the snapshot table exists and hydrates memory from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if err := snapshot.DecodeBucket(bucket, payload); err != nil {
			return memory.Snapshot{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context) error {
	buckets, err := s.ExportState().EncodeBuckets()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
