// Package exportqueue implements C5: a bounded, deduplicated FIFO of
// background develop/export jobs processed one at a time, pausable by
// an interactive foreground export. Storage-health lockout does not
// pause the queue: each job reached while the injected checker reports
// unhealthy storage is recorded as a DISK_FULL failure and dropped
// without running the pipeline.
package exportqueue

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/hosterror"
	"github.com/boothy-app/camera-core/internal/ringbuffer"
	"github.com/boothy-app/camera-core/internal/sessionmeta"
	"github.com/boothy-app/camera-core/internal/settings"
	"github.com/boothy-app/camera-core/internal/storagehealth"
)

// ErrCancelled is the sentinel a Pipeline returns when it observed the
// cancel flag at one of its checkpoints.
var ErrCancelled = errors.New("exportqueue: background export cancelled")

// Pipeline is the external develop/export collaborator. Implementations
// MUST check cancel.Load() at coarse-grained boundaries (load, process,
// encode, write) and return ErrCancelled as soon as it is observed.
type Pipeline interface {
	DevelopAndExport(ctx context.Context, rawPath string, s settings.ExportSettings, cancel *atomic.Bool) error
}

// ActiveSession resolves the session a raw path belongs to, refusing
// paths outside it.
type ActiveSession interface {
	RawDir() (string, bool)
	Metadata() *sessionmeta.Store
	SessionHandle() string
}

// Job is one enqueued background export.
type Job struct {
	Path          string
	CorrelationID string
	ReceivedAt    time.Time
}

func dedupKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// CatchUpResult reports how many jobs a CatchUp pass enqueued versus
// skipped.
type CatchUpResult struct {
	Enqueued int
	Skipped  int
}

// Queue is C5.
type Queue struct {
	logger   corelog.Logger
	session  ActiveSession
	pipeline Pipeline
	provider settings.Provider
	storage  storagehealth.Checker

	jobsMu  sync.Mutex
	jobs    *ringbuffer.Fifo[Job]
	pending map[string]struct{}

	paused          atomic.Bool
	resumeCh        chan struct{}
	cancelRequested atomic.Bool
	inFlight        atomic.Bool

	notEmpty *sync.Cond

	idleMu   sync.Mutex
	idleCond *sync.Cond
}

// New builds a Queue with the given backlog capacity.
func New(backlog int, logger corelog.Logger, session ActiveSession, pipeline Pipeline, provider settings.Provider, storage storagehealth.Checker) *Queue {
	if storage == nil {
		storage = storagehealth.AlwaysHealthy{}
	}
	q := &Queue{
		logger:   logger,
		session:  session,
		pipeline: pipeline,
		provider: provider,
		storage:  storage,
		jobs:     ringbuffer.New[Job](backlog),
		pending:  make(map[string]struct{}),
		resumeCh: make(chan struct{}),
	}
	q.notEmpty = sync.NewCond(&q.jobsMu)
	q.idleCond = sync.NewCond(&q.idleMu)
	return q
}

// Enqueue adds path to the queue unless it is already pending or
// in-flight, in which case the call is a silent no-op.
func (q *Queue) Enqueue(path, correlationID string, receivedAt time.Time) {
	key := dedupKey(path)
	q.jobsMu.Lock()
	if _, ok := q.pending[key]; ok {
		q.jobsMu.Unlock()
		return
	}
	if q.jobs.Full() {
		q.jobsMu.Unlock()
		q.logger.Warn("export queue backlog full, dropping job", corelog.String("path", path))
		return
	}
	q.pending[key] = struct{}{}
	q.jobs.Push(Job{Path: path, CorrelationID: correlationID, ReceivedAt: receivedAt})
	depth := q.jobs.Len()
	q.notEmpty.Signal()
	q.jobsMu.Unlock()
	queueDepth.Set(float64(depth))
}

// Pause blocks the worker at its next iteration boundary.
func (q *Queue) Pause() {
	q.paused.Store(true)
}

// Resume releases a paused worker.
func (q *Queue) Resume() {
	q.paused.Store(false)
	select {
	case q.resumeCh <- struct{}{}:
	default:
	}
}

// RequestCancel asks the in-flight job to abort at its next checkpoint.
func (q *Queue) RequestCancel() {
	q.cancelRequested.Store(true)
}

// WaitForIdle blocks until no job is in-flight and the queue is either
// empty or paused.
func (q *Queue) WaitForIdle() {
	q.idleMu.Lock()
	for q.inFlight.Load() || (!q.paused.Load() && q.depth() > 0) {
		q.idleCond.Wait()
	}
	q.idleMu.Unlock()
}

func (q *Queue) depth() int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()
	return q.jobs.Len()
}

// PauseAndCancel is the primitive an interactive foreground export
// uses to take over the shared develop/export pipeline: pause, cancel
// the current job, wait for it to settle, then the caller runs its own
// work and calls Resume when done.
func (q *Queue) PauseAndCancel() {
	q.Pause()
	q.RequestCancel()
	q.WaitForIdle()
}

// Close cancels and drains any in-flight job, then flushes a "cancelled"
// metadata entry for every job still sitting in the backlog so a restart's
// catch-up pass sees them as retry-eligible rather than silently lost.
// Errors from the individual metadata writes are combined rather than
// stopping at the first failure, so one bad write doesn't mask the rest.
func (q *Queue) Close() error {
	q.PauseAndCancel()

	q.jobsMu.Lock()
	leftover := make([]Job, 0, q.jobs.Len())
	for q.jobs.Len() > 0 {
		job, _ := q.jobs.Pop()
		leftover = append(leftover, job)
	}
	q.pending = make(map[string]struct{})
	q.jobsMu.Unlock()
	queueDepth.Set(0)

	meta := q.session.Metadata()
	if meta == nil {
		return nil
	}
	var err error
	for _, job := range leftover {
		rawFilename := filepath.Base(job.Path)
		le := lastErrorFrom(hosterror.BackgroundExportCancelled(rawFilename))
		err = multierr.Append(err, meta.MarkFailure(rawFilename, le))
	}
	return err
}

func (q *Queue) notifyIdle() {
	q.idleMu.Lock()
	q.idleCond.Broadcast()
	q.idleMu.Unlock()
}

// Run is the single consumer. It loops until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		q.jobsMu.Lock()
		q.notEmpty.Broadcast()
		q.jobsMu.Unlock()
	}()

	for {
		job, ok := q.popBlocking(ctx)
		if !ok {
			return
		}
		q.runOne(ctx, job)
	}
}

func (q *Queue) popBlocking(ctx context.Context) (Job, bool) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()
	for q.jobs.Len() == 0 {
		if ctx.Err() != nil {
			return Job{}, false
		}
		q.notEmpty.Wait()
	}
	job, _ := q.jobs.Pop()
	queueDepth.Set(float64(q.jobs.Len()))
	return job, true
}

func (q *Queue) runOne(ctx context.Context, job Job) {
	for q.paused.Load() {
		select {
		case <-ctx.Done():
			return
		case <-q.resumeCh:
		}
	}

	q.inFlight.Store(true)
	q.processJob(ctx, job)
	q.inFlight.Store(false)
	q.notifyIdle()

	q.cancelRequested.Store(false)

	q.jobsMu.Lock()
	delete(q.pending, dedupKey(job.Path))
	q.jobsMu.Unlock()
}

func (q *Queue) processJob(ctx context.Context, job Job) {
	rawDir, ok := q.session.RawDir()
	if !ok {
		jobResults.WithLabelValues("no_active_session").Inc()
		q.logger.Warn("export queue: no active session, dropping job", corelog.String("path", job.Path))
		return
	}
	rel, err := filepath.Rel(rawDir, job.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		jobResults.WithLabelValues("rejected_outside_session").Inc()
		q.logger.Warn("export queue: job outside active session raw directory, rejecting",
			corelog.String("path", job.Path))
		return
	}

	meta := q.session.Metadata()
	rawFilename := filepath.Base(job.Path)
	if meta.IsBackgroundExportCompleted(rawFilename) {
		jobResults.WithLabelValues("already_completed").Inc()
		return
	}

	if healthy, herr := q.storage.Healthy(ctx); herr == nil && !healthy {
		_ = meta.MarkFailure(rawFilename, lastErrorFrom(hosterror.ExportDiskFull(job.Path)))
		jobResults.WithLabelValues("storage_lockout").Inc()
		q.logger.Warn("export queue: storage health lockout, skipping job", corelog.String("path", job.Path))
		return
	}

	now := time.Now()
	if err := meta.RecordAttempt(rawFilename, now); err != nil {
		q.logger.Error("export queue: failed to record attempt", corelog.Error(err))
	}

	s, err := q.provider.Settings(ctx, q.session.SessionHandle())
	if err != nil {
		_ = meta.MarkFailure(rawFilename, lastErrorFrom(hosterror.SettingsLoadFailed(q.session.SessionHandle(), err.Error())))
		jobResults.WithLabelValues("settings_error").Inc()
		return
	}

	err = q.pipeline.DevelopAndExport(ctx, job.Path, s, &q.cancelRequested)
	switch {
	case err == nil:
		if merr := meta.MarkSuccess(rawFilename, time.Now()); merr != nil {
			q.logger.Error("export queue: failed to persist success", corelog.Error(merr))
		}
		jobResults.WithLabelValues("success").Inc()
	case errors.Is(err, ErrCancelled):
		_ = meta.MarkFailure(rawFilename, lastErrorFrom(hosterror.BackgroundExportCancelled(rawFilename)))
		jobResults.WithLabelValues("cancelled").Inc()
	default:
		he := hosterror.ExportFailed(job.Path, err.Error())
		_ = meta.MarkFailure(rawFilename, lastErrorFrom(he))
		jobResults.WithLabelValues("failed").Inc()
		q.logger.Warn("export queue: job failed", corelog.String("path", job.Path), corelog.Error(err))
	}
}

// lastErrorFrom projects a HostError onto the persisted record shape:
// code, customer-safe message and context, per spec.md's lastError
// object rather than a bare diagnostic string.
func lastErrorFrom(he hosterror.HostError) sessionmeta.LastError {
	return sessionmeta.LastError{
		Code:    he.Code,
		Message: he.Message,
		Context: he.Context,
	}
}

// CatchUp walks rawFiles and enqueues, with a fresh correlation id,
// each file that has a preset sidecar and is not yet
// backgroundExportCompleted; every other file counts as skipped.
// rawDir is not read.
func CatchUp(q *Queue, rawDir string, rawFiles []string, hasSidecar func(string) bool, meta *sessionmeta.Store, newCorrelationID func() string) CatchUpResult {
	var result CatchUpResult
	for _, f := range rawFiles {
		if !hasSidecar(f) {
			result.Skipped++
			continue
		}
		if meta.IsBackgroundExportCompleted(filepath.Base(f)) {
			result.Skipped++
			continue
		}
		q.Enqueue(f, newCorrelationID(), time.Now())
		result.Enqueued++
	}
	return result
}
