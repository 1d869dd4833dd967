package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"smarthika/internal/core"
	"smarthika/internal/infra/persistence/memory"
	"smarthika/pkg/domain"
)

type stubSubmitter struct {
	mu      sync.Mutex
	outcome domain.Outcome
	calls   []domain.Record
}

func (s *stubSubmitter) Submit(_ context.Context, _ string, rec domain.Record) domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rec)
	return s.outcome
}

type stubArchiver struct {
	err      error
	sessions []domain.Session
}

func (a *stubArchiver) EnqueueArchive(_ context.Context, sess domain.Session) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.sessions = append(a.sessions, sess)
	return "arch-1", nil
}

func newTestService(t *testing.T, opts ...core.ServiceOption) *core.Service {
	t.Helper()
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	opts = append([]core.ServiceOption{core.WithClock(func() time.Time { return fixed })}, opts...)
	return core.NewService(memory.NewStore(), nil, opts...)
}

func fillValid(t *testing.T, svc *core.Service, id string) {
	t.Helper()
	rec := validRecord()
	ctx := context.Background()
	for _, mod := range domain.Modules {
		fields, err := domain.FieldMap(rec.Module(mod))
		require.NoError(t, err)
		_, err = svc.Dispatch(ctx, id, core.UpdateModule{Module: mod, Patch: fields})
		require.NoError(t, err)
	}
}

func TestServiceSessionLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, domain.SessionDraft, sess.Status)
	assert.Equal(t, []string{domain.SoilLoamy}, sess.Record.Canvas.SoilTextures)

	sess, err = svc.Dispatch(ctx, sess.ID, core.NextModule{})
	require.NoError(t, err)
	assert.Equal(t, 1, sess.CurrentStep)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSession(ctx, sess.ID))
	_, err = svc.Session(ctx, sess.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.DeleteSession(ctx, sess.ID)))

	_, err = svc.Dispatch(ctx, "ghost", core.NextModule{})
	var nf core.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
}

func TestServiceDispatchErrorKeepsSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, sess.ID, core.UpdateModule{Module: domain.ModuleHeart, Patch: map[string]any{"waterSources": 7}})
	require.ErrorIs(t, err, core.ErrInvalidInput)
	got, err := svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Record.Heart.WaterSources)
}

func TestServiceSubmitInvalidJumpsToFirstInvalid(t *testing.T) {
	sub := &stubSubmitter{outcome: domain.Outcome{Success: true}}
	svc := newTestService(t, core.WithSubmitter(sub))
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	fillValid(t, svc, sess.ID)
	_, err = svc.Dispatch(ctx, sess.ID, core.UpdateModule{Module: domain.ModuleArteries, Patch: map[string]any{"pipeMaterial": ""}})
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, sess.ID, core.GoToModule{Index: 9})
	require.NoError(t, err)

	res, err := svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Validation.Valid)
	assert.Equal(t, domain.ModuleArteries.Index(), res.Session.CurrentStep)
	assert.Empty(t, sub.calls, "invalid records must not be sent")

	attempts, err := svc.Attempts(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestServiceSubmitSuccess(t *testing.T) {
	sub := &stubSubmitter{outcome: domain.Outcome{Success: true}}
	arch := &stubArchiver{}
	obsCore, logs := observer.New(zap.InfoLevel)
	svc := newTestService(t, core.WithSubmitter(sub), core.WithArchiver(arch), core.WithLogger(zap.New(obsCore)))
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	fillValid(t, svc, sess.ID)

	res, err := svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "arch-1", res.ArchiveID)
	assert.Equal(t, domain.SessionSubmitted, res.Session.Status)
	require.NotNil(t, res.Session.SubmittedAt)
	assert.Len(t, res.Session.Completed, domain.ModuleCount)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "Ravi Kumar", sub.calls[0].Profile.CustomerName)
	require.Len(t, arch.sessions, 1)
	assert.Equal(t, 1, logs.FilterMessage("survey submitted").Len())

	attempts, err := svc.Attempts(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, "arch-1", attempts[0].ArchiveID)

	// editing after submission returns the survey to draft
	edited, err := svc.Dispatch(ctx, sess.ID, core.UpdateModule{Module: domain.ModuleProfile, Patch: map[string]any{"customerName": "Ravi K"}})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDraft, edited.Status)
}

func TestServiceSubmitTransportFailureAllowsRetry(t *testing.T) {
	sub := &stubSubmitter{outcome: domain.Outcome{Error: "network down"}}
	svc := newTestService(t, core.WithSubmitter(sub), core.WithArchiver(&stubArchiver{err: errors.New("full")}))
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	fillValid(t, svc, sess.ID)

	res, err := svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "network down", res.Error)
	assert.Equal(t, domain.SessionDraft, res.Session.Status)

	sub.outcome = domain.Outcome{Success: true}
	res, err = svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.ArchiveID, "archive failures are logged, not returned")

	attempts, _ := svc.Attempts(ctx, sess.ID)
	assert.Len(t, attempts, 2)
}

func TestServiceSubmitWithoutTransport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	fillValid(t, svc, sess.ID)
	res, err := svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestServiceValidateAndMetrics(t *testing.T) {
	metrics := core.NewExpvarMetricsRecorder("")
	svc := newTestService(t, core.WithMetrics(metrics))
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	report, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	fields, err := svc.ValidateModule(ctx, domain.ModuleCanvas, map[string]any{"totalArea": "5"})
	require.NoError(t, err)
	assert.Empty(t, fields)

	_, err = svc.Validate(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Submit(ctx, "missing")
	assert.True(t, core.IsNotFound(err))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Results["create_session"]["success"])
	assert.Equal(t, int64(1), snap.Results["submit"]["error"])
	assert.NotNil(t, svc.Store())
	assert.NotNil(t, svc.Engine())
}
