package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smarthika/pkg/domain"
)

// Submitter hands a record to the spreadsheet web-hook.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, rec Record) domain.Outcome
}

// Archiver stores a copy of a submitted session and returns the archive id.
type Archiver interface {
	EnqueueArchive(ctx context.Context, session Session) (string, error)
}

// ErrInvalidInput marks errors caused by a malformed action or patch.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned when a session lookup fails.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Service exposes the survey operations over a persistent session store.
type Service struct {
	store     PersistentStore
	engine    *RulesEngine
	submitter Submitter
	archiver  Archiver
	metrics   MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSubmitter sets the submission transport.
func WithSubmitter(s Submitter) ServiceOption {
	return func(svc *Service) { svc.submitter = s }
}

// WithArchiver sets the archive scheduler used after successful submissions.
func WithArchiver(a Archiver) ServiceOption {
	return func(svc *Service) { svc.archiver = a }
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(svc *Service) {
		if m != nil {
			svc.metrics = m
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// NewService constructs a service backed by the supplied store and rules engine.
func NewService(store PersistentStore, engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	svc := &Service{
		store:   store,
		engine:  engine,
		metrics: noopMetrics{},
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Engine returns the rules engine.
func (s *Service) Engine() *RulesEngine { return s.engine }

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error) {
	s.metrics.Observe(ctx, op, *errp == nil, time.Since(start))
}

// CreateSession starts a new survey from the default record.
func (s *Service) CreateSession(ctx context.Context) (sess Session, err error) {
	defer s.observe(ctx, "create_session", time.Now(), &err)
	now := s.now()
	st := NewState()
	sess = Session{ID: s.newID(), Status: domain.SessionDraft, CreatedAt: now, UpdatedAt: now}
	st.Apply(&sess)
	sess, err = s.store.CreateSession(ctx, sess)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug("session created", zap.String("session", sess.ID))
	return sess, nil
}

// Session returns a stored session.
func (s *Service) Session(ctx context.Context, id string) (Session, error) {
	sess, ok, err := s.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotFound{Entity: "session", ID: id}
	}
	return sess, nil
}

// ListSessions returns every stored session.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	return s.store.ListSessions(ctx)
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	ok, err := s.store.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound{Entity: "session", ID: id}
	}
	return nil
}

// Dispatch applies a reducer action to a stored session. Edits to a submitted
// survey return it to draft so it can be submitted again.
func (s *Service) Dispatch(ctx context.Context, id string, action Action) (sess Session, err error) {
	defer s.observe(ctx, "dispatch", time.Now(), &err)
	sess, err = s.store.UpdateSession(ctx, id, func(cur *Session) error {
		next, err := Reduce(StateOf(*cur), action)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		next.Apply(cur)
		if editsRecord(action) {
			cur.Status = domain.SessionDraft
		}
		cur.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Session{}, s.wrapLookup(id, err)
	}
	s.logger.Debug("action applied",
		zap.String("session", id),
		zap.String("action", ActionName(action)),
		zap.Int("step", sess.CurrentStep))
	return sess, nil
}

func editsRecord(a Action) bool {
	switch a.(type) {
	case UpdateModule, ToggleSoilTexture, ToggleWaterSource, Reset:
		return true
	default:
		return false
	}
}

// ValidateModule validates a loose field map for one module.
func (s *Service) ValidateModule(ctx context.Context, id ModuleID, fields map[string]any) (map[string]string, error) {
	return s.engine.ValidateModule(ctx, id, fields)
}

// Validate runs every rule against a stored session.
func (s *Service) Validate(ctx context.Context, id string) (Report, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return s.engine.ValidateRecord(ctx, sess.Record)
}

// SubmitResult is returned from Submit.
type SubmitResult struct {
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Validation Report  `json:"validation"`
	Session    Session `json:"session"`
	AttemptID  string  `json:"attemptId,omitempty"`
	ArchiveID  string  `json:"archiveId,omitempty"`
}

// Submit validates a session and, when valid, sends it to the web-hook once.
// Invalid sessions are moved to their first invalid step and nothing is sent.
// Transport failures are reported in the result, leaving the record intact for
// another attempt; only storage failures return an error.
func (s *Service) Submit(ctx context.Context, id string) (res SubmitResult, err error) {
	defer s.observe(ctx, "submit", time.Now(), &err)
	sess, err := s.Session(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	report, err := s.engine.ValidateRecord(ctx, sess.Record)
	if err != nil {
		return SubmitResult{}, err
	}
	if !report.Valid {
		sess, err = s.store.UpdateSession(ctx, id, func(cur *Session) error {
			cur.CurrentStep = report.FirstInvalid
			cur.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			return SubmitResult{}, s.wrapLookup(id, err)
		}
		s.logger.Info("submission blocked by validation",
			zap.String("session", id),
			zap.Int("first_invalid", report.FirstInvalid),
			zap.Int("errors", len(report.Errors)))
		return SubmitResult{Success: false, Error: "validation failed", Validation: report, Session: sess}, nil
	}

	outcome := domain.Outcome{Error: "submission transport not configured"}
	if s.submitter != nil {
		outcome = s.submitter.Submit(ctx, sess.ID, sess.Record)
	}
	attempt := SubmissionAttempt{
		ID:          s.newID(),
		SessionID:   sess.ID,
		Success:     outcome.Success,
		Error:       outcome.Error,
		AttemptedAt: s.now(),
	}
	res = SubmitResult{Success: outcome.Success, Error: outcome.Error, Validation: report, Session: sess, AttemptID: attempt.ID}

	if outcome.Success {
		sess, err = s.store.UpdateSession(ctx, id, func(cur *Session) error {
			submitted := s.now()
			cur.Status = domain.SessionSubmitted
			cur.SubmittedAt = &submitted
			cur.UpdatedAt = submitted
			cur.Completed = allSteps()
			return nil
		})
		if err != nil {
			return SubmitResult{}, s.wrapLookup(id, err)
		}
		res.Session = sess
		if s.archiver != nil {
			archiveID, archiveErr := s.archiver.EnqueueArchive(ctx, sess)
			if archiveErr != nil {
				s.logger.Warn("archive enqueue failed", zap.String("session", id), zap.Error(archiveErr))
			} else {
				attempt.ArchiveID = archiveID
				res.ArchiveID = archiveID
			}
		}
		s.logger.Info("survey submitted", zap.String("session", id), zap.String("attempt", attempt.ID))
	} else {
		s.logger.Warn("survey submission failed", zap.String("session", id), zap.String("error", outcome.Error))
	}

	if err := s.store.RecordAttempt(ctx, attempt); err != nil {
		return SubmitResult{}, fmt.Errorf("record attempt: %w", err)
	}
	return res, nil
}

// Attempts lists the submission attempts for a session, oldest first.
func (s *Service) Attempts(ctx context.Context, id string) ([]SubmissionAttempt, error) {
	if _, err := s.Session(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, id)
}

func (s *Service) wrapLookup(id string, err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return ErrNotFound{Entity: "session", ID: id}
	}
	return err
}

func allSteps() []int {
	out := make([]int, domain.ModuleCount)
	for i := range out {
		out[i] = i
	}
	return out
}
