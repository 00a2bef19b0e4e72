package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boothy-app/camera-core/internal/config"
	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/preset"
	"github.com/boothy-app/camera-core/internal/protocol"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(event string, payload interface{}) {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
}

func (e *recordingEmitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev == event {
			n++
		}
	}
	return n
}

func waitForEmitterCount(t *testing.T, e *recordingEmitter, event string, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if e.count(event) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events, got %d", n, event, e.count(event))
}

func fastStabilizerCfg() config.Stabilizer {
	return config.Stabilizer{
		PollInterval:        time.Millisecond,
		StableCountRequired: 3,
		MaxWait:             2 * time.Second,
		MinAge:              0,
		SettleDelay:         0,
	}
}

func TestWatcherEmitsNewPhotoForStableFile(t *testing.T) {
	dir := t.TempDir()
	emitter := &recordingEmitter{}
	var enqueued []string
	var mu sync.Mutex
	enqueue := func(path, correlationID string) {
		mu.Lock()
		enqueued = append(enqueued, path)
		mu.Unlock()
	}

	w := New(dir, fastStabilizerCfg(), nil, corelog.NewNop(), emitter, preset.NewStore(), enqueue)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(dir, "IMG_0001.jpg")
	old := time.Now().Add(-time.Hour)
	if err := os.WriteFile(path, []byte("photo bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	os.Chtimes(path, old, old)

	waitForEmitterCount(t, emitter, protocol.EventNewPhoto, 1)

	mu.Lock()
	defer mu.Unlock()
	if len(enqueued) != 1 || enqueued[0] != path {
		t.Fatalf("expected the stable path handed to the export queue, got %v", enqueued)
	}
}

func TestWatcherIgnoresUnlistedExtensions(t *testing.T) {
	dir := t.TempDir()
	emitter := &recordingEmitter{}
	w := New(dir, fastStabilizerCfg(), nil, corelog.NewNop(), emitter, preset.NewStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := emitter.count(protocol.EventNewPhoto); got != 0 {
		t.Fatalf("expected no NewPhoto event for an unlisted extension, got %d", got)
	}
}

func TestWatcherAppliesCurrentPresetBeforeEmitting(t *testing.T) {
	dir := t.TempDir()
	emitter := &recordingEmitter{}
	store := preset.NewStore()
	store.Set(preset.Preset{PresetID: "warm", Adjustments: map[string]interface{}{"temperature": 200}})

	w := New(dir, fastStabilizerCfg(), nil, corelog.NewNop(), emitter, store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(dir, "IMG_0002.jpg")
	old := time.Now().Add(-time.Hour)
	if err := os.WriteFile(path, []byte("photo bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	os.Chtimes(path, old, old)

	waitForEmitterCount(t, emitter, protocol.EventNewPhoto, 1)

	if _, err := os.Stat(preset.SidecarPath(path)); err != nil {
		t.Fatalf("expected a sidecar document written for the applied preset: %v", err)
	}
}
