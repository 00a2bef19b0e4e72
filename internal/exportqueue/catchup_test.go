package exportqueue

import (
	"testing"
	"time"

	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/sessionmeta"
	"github.com/boothy-app/camera-core/internal/settings"
)

func TestCatchUpEnqueuesOnlyEligibleFiles(t *testing.T) {
	rawDir := t.TempDir()
	session := NewSingleSession()
	session.Open("handle-1", rawDir)

	a := writeRawFile(t, rawDir, "a.raw")
	b := writeRawFile(t, rawDir, "b.raw")
	c := writeRawFile(t, rawDir, "c.raw")

	meta := sessionmeta.New(rawDir)
	if err := meta.MarkSuccess("b.raw", time.Now()); err != nil {
		t.Fatalf("seed MarkSuccess: %v", err)
	}

	hasSidecar := func(path string) bool {
		return path != c
	}

	pipeline := &fakePipeline{}
	q := New(8, corelog.NewNop(), session, pipeline, settings.NewDefaultFixed(), nil)

	seq := 0
	newCorrelationID := func() string {
		seq++
		return "catchup-" + string(rune('0'+seq))
	}

	result := CatchUp(q, rawDir, []string{a, b, c}, hasSidecar, meta, newCorrelationID)

	if result.Enqueued != 1 {
		t.Fatalf("expected exactly one eligible file (a.raw), got Enqueued=%d", result.Enqueued)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected b.raw (completed) and c.raw (no sidecar) skipped, got Skipped=%d", result.Skipped)
	}
	if q.depth() != 1 {
		t.Fatalf("expected one job enqueued onto the queue, depth() = %d", q.depth())
	}
}
