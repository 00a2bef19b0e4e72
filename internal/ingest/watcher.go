// Package ingest implements C4: watching a session's raw-photo
// directory, waiting for each newly-arrived file to become stable,
// applying the current preset snapshot, and announcing the result.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/boothy-app/camera-core/internal/config"
	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/hosterror"
	"github.com/boothy-app/camera-core/internal/preset"
	"github.com/boothy-app/camera-core/internal/protocol"
)

// EnqueueFunc hands a newly-stabilized path off to the background
// export queue (C5).
type EnqueueFunc func(path, correlationID string)

// Watcher is C4.
type Watcher struct {
	root       string
	cfg        config.Stabilizer
	extensions map[string]struct{}
	logger     corelog.Logger
	emitter    protocol.Emitter
	presets    *preset.Store
	enqueue    EnqueueFunc

	mu      sync.Mutex
	pending map[string]struct{}

	idSeq uint64
}

// New builds a Watcher over root. enqueue may be nil if nothing
// downstream wants background exports (e.g. a headless import-only
// tool).
func New(root string, cfg config.Stabilizer, extensions map[string]struct{}, logger corelog.Logger, emitter protocol.Emitter, presets *preset.Store, enqueue EnqueueFunc) *Watcher {
	if extensions == nil {
		extensions = DefaultExtensions()
	}
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	return &Watcher{
		root:       root,
		cfg:        cfg,
		extensions: extensions,
		logger:     logger,
		emitter:    emitter,
		presets:    presets,
		enqueue:    enqueue,
		pending:    make(map[string]struct{}),
	}
}

// Watch starts the directory watch. It returns once the underlying
// fsnotify watcher is registered; the dispatch loop runs in the
// background until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return err
	}
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("directory watcher error", corelog.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&fsnotify.Remove != 0 {
		w.emitter.Emit(protocol.EventSessionFilesChanged, sessionFilesChangedEvent{
			Path: ev.Name, Kind: protocol.SessionFileRemoved,
		})
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !hasEligibleExtension(ev.Name, w.extensions) {
		return
	}
	if !w.tryAcquire(ev.Name) {
		// Already in flight: the Create-then-Modify double fire on some
		// platforms must not start a second stabilization task.
		return
	}

	kind := protocol.SessionFileModified
	if ev.Op&fsnotify.Create != 0 {
		kind = protocol.SessionFileCreated
	}
	w.emitter.Emit(protocol.EventSessionFilesChanged, sessionFilesChangedEvent{Path: ev.Name, Kind: kind})

	go w.stabilize(ctx, ev.Name)
}

func (w *Watcher) stabilize(ctx context.Context, path string) {
	defer w.release(path)

	select {
	case <-time.After(w.cfg.SettleDelay):
	case <-ctx.Done():
		return
	}

	result, size := pollUntilStable(path, w.cfg, func(d time.Duration) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	})
	stabilizeResults.WithLabelValues(result.String()).Inc()

	switch result {
	case ResultStable:
		correlationID := w.newCorrelationID()
		if p, ok := w.presets.Current(); ok {
			if err := preset.Apply(path, p, time.Now()); err != nil {
				w.logger.Error("failed to apply preset", corelog.Error(err), corelog.String("path", path))
				w.emitImportError(path, hosterror.PresetApplyFailed(p.PresetID, err.Error()), correlationID)
			}
		}
		w.emitter.Emit(protocol.EventNewPhoto, newPhotoEvent{Path: path, Size: size, CorrelationID: correlationID})
		if w.enqueue != nil {
			w.enqueue(path, correlationID)
		}
	case ResultTimeout:
		w.emitImportError(path, hosterror.ImportFailed(path, "stabilization timed out"), w.newCorrelationID())
	case ResultLocked:
		w.emitImportError(path, hosterror.ImportFailed(path, "file is locked by another process"), w.newCorrelationID())
	case ResultNotFound:
		w.logger.Warn("file disappeared before it could stabilize", corelog.String("path", path))
	}
}

func (w *Watcher) emitImportError(path string, he hosterror.HostError, correlationID string) {
	w.emitter.Emit(protocol.EventImportError, importErrorEvent{
		Path:          path,
		Code:          he.Code,
		Message:       he.Message,
		CorrelationID: correlationID,
	})
}

func (w *Watcher) tryAcquire(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[path]; ok {
		return false
	}
	w.pending[path] = struct{}{}
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// Pending reports whether path currently has a stabilization task in
// flight, for tests asserting P3.
func (w *Watcher) Pending(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[path]
	return ok
}

func (w *Watcher) newCorrelationID() string {
	n := atomic.AddUint64(&w.idSeq, 1)
	return fmt.Sprintf("ingest-%d-%d", time.Now().UnixNano(), n)
}

type sessionFilesChangedEvent struct {
	Path string                         `json:"path"`
	Kind protocol.SessionFilesChangeKind `json:"kind"`
}

type newPhotoEvent struct {
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	CorrelationID string `json:"correlationId"`
}

type importErrorEvent struct {
	Path          string `json:"path"`
	Code          string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}
