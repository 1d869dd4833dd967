// Package archive copies submitted surveys into blob storage in the background.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smarthika/internal/blob"
	"smarthika/internal/core"
	"smarthika/pkg/domain"
)

// Status describes the lifecycle stage of an archive job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact is one stored file of an archive.
type Artifact struct {
	Key         string `json:"key"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	ETag        string `json:"etag,omitempty"`
}

// Job tracks one archive request.
type Job struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (j Job) copy() Job {
	dup := j
	dup.Artifacts = append([]Artifact(nil), j.Artifacts...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

var (
	// ErrQueueFull is returned when the worker cannot accept more jobs.
	ErrQueueFull = errors.New("archive queue full")
	// ErrStopped is returned for jobs enqueued after Stop, and recorded on
	// jobs still queued when the worker stopped.
	ErrStopped = errors.New("archive worker stopped")
)

const (
	// DefaultQueueSize is the job buffer used when none is configured.
	DefaultQueueSize = 32
	// DefaultRetainedJobs is how many finished jobs stay queryable.
	DefaultRetainedJobs = 1024
)

// Worker writes archives asynchronously. It implements core.Archiver.
type Worker struct {
	store  blob.Store
	logger *zap.Logger
	now    func() time.Time

	queue    chan task
	mu       sync.RWMutex
	jobs     map[string]*Job
	finished []string
	retain   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once
}

type task struct {
	id      string
	session domain.Session
}

var _ core.Archiver = (*Worker)(nil)

// Option customizes a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithQueueSize sets the job buffer.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan task, n)
		}
	}
}

// WithRetainedJobs bounds how many finished jobs are kept for status queries.
// The oldest finished job is forgotten first.
func WithRetainedJobs(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.retain = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorker constructs an archive worker writing to store.
func NewWorker(store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		store:  store,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		queue:  make(chan task, DefaultQueueSize),
		jobs:   make(map[string]*Job),
		retain: DefaultRetainedJobs,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Start begins processing archive jobs.
func (w *Worker) Start() {
	w.start.Do(func() {
		w.wg.Add(1)
		go w.loop()
	})
}

// Stop signals the worker to halt and waits for the current job. Jobs still
// queued are marked failed with ErrStopped.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	defer w.drain()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

func (w *Worker) drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		select {
		case t := <-w.queue:
			if job, ok := w.jobs[t.id]; ok {
				now := w.now()
				job.Status = StatusFailed
				job.Error = ErrStopped.Error()
				job.UpdatedAt = now
				job.CompletedAt = &now
				w.retire(t.id)
			}
			w.logger.Warn("archive dropped at shutdown", zap.String("archive", t.id), zap.String("session", t.session.ID))
		default:
			return
		}
	}
}

// retire records id as finished and forgets the oldest finished jobs beyond
// the retention limit. Callers hold w.mu.
func (w *Worker) retire(id string) {
	w.finished = append(w.finished, id)
	for len(w.finished) > w.retain {
		delete(w.jobs, w.finished[0])
		w.finished = w.finished[1:]
	}
}

// EnqueueArchive schedules an archive of session and returns the job id.
func (w *Worker) EnqueueArchive(_ context.Context, session domain.Session) (string, error) {
	if w.store == nil {
		return "", fmt.Errorf("archive store not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return "", fmt.Errorf("session id required")
	}
	id := uuid.NewString()
	now := w.now()
	job := &Job{ID: id, SessionID: session.ID, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return "", ErrStopped
	}
	select {
	case w.queue <- task{id: id, session: session.Clone()}:
		w.jobs[id] = job
		w.mu.Unlock()
	default:
		w.mu.Unlock()
		return "", ErrQueueFull
	}
	w.logger.Debug("archive queued", zap.String("archive", id), zap.String("session", session.ID))
	return id, nil
}

// Job returns a snapshot of an archive job.
func (w *Worker) Job(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(t task) {
	w.update(t.id, func(j *Job) { j.Status = StatusRunning })

	artifacts := make([]Artifact, 0, 2)
	for _, format := range []string{"json", "csv"} {
		payload, contentType, err := render(format, t.session)
		if err != nil {
			w.fail(t.id, err)
			return
		}
		key := blob.ArchiveKey(t.session.ID, t.id, format)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"session": t.session.ID, "archive": t.id},
		})
		if err != nil {
			w.fail(t.id, fmt.Errorf("store %s: %w", key, err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			ETag:        info.ETag,
		})
	}

	done := w.now()
	w.finish(t.id, func(j *Job) {
		j.Status = StatusSucceeded
		j.Error = ""
		j.Artifacts = artifacts
		j.CompletedAt = &done
	})
	w.logger.Info("archive stored", zap.String("archive", t.id), zap.String("session", t.session.ID))
}

func (w *Worker) fail(id string, err error) {
	done := w.now()
	w.finish(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
		j.CompletedAt = &done
	})
	w.logger.Warn("archive failed", zap.String("archive", id), zap.Error(err))
}

func (w *Worker) update(id string, fn func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = w.now()
	}
}

func (w *Worker) finish(id string, fn func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = w.now()
		w.retire(id)
	}
}

func render(format string, session domain.Session) ([]byte, string, error) {
	switch format {
	case "json":
		payload, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case "csv":
		payload, err := FlattenCSV(session)
		return payload, "text/csv", err
	default:
		return nil, "", fmt.Errorf("unsupported archive format %s", format)
	}
}

// FlattenCSV renders the session as a header row and one value row. Columns are
// "<module>.<field>" sorted within each module, modules in step order, preceded
// by the session id and submission time.
func FlattenCSV(session domain.Session) ([]byte, error) {
	headers := []string{"sessionId", "submittedAt"}
	row := []string{session.ID, ""}
	if session.SubmittedAt != nil {
		row[1] = session.SubmittedAt.UTC().Format(time.RFC3339)
	}
	for _, id := range domain.Modules {
		fields, err := domain.FieldMap(session.Record.Module(id))
		if err != nil {
			return nil, fmt.Errorf("flatten %s: %w", id, err)
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			headers = append(headers, string(id)+"."+name)
			row = append(row, formatValue(fields[name]))
		}
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	if err := writer.Write(row); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ";")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + formatValue(v[k])
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(v)
	}
}
