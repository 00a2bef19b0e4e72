package sessionmeta

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadToleratesMissingFile(t *testing.T) {
	s := New(t.TempDir())
	m := s.Load()
	if m.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", m.SchemaVersion, SchemaVersion)
	}
	if len(m.Photos) != 0 {
		t.Errorf("expected no photos, got %v", m.Photos)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := New(dir)
	m := s.Load()
	if m.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", m.SchemaVersion, SchemaVersion)
	}
}

func TestRecordAttemptCreatesEntryAndIncrements(t *testing.T) {
	s := New(t.TempDir())
	at := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	if err := s.RecordAttempt("IMG_0001.raw", at); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := s.RecordAttempt("IMG_0001.raw", at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	m := s.Load()
	if len(m.Photos) != 1 {
		t.Fatalf("expected one photo entry, got %d", len(m.Photos))
	}
	if m.Photos[0].AttemptCount != 2 {
		t.Fatalf("expected attempt count 2, got %d", m.Photos[0].AttemptCount)
	}
	if s.IsBackgroundExportCompleted("IMG_0001.raw") {
		t.Fatal("expected photo not yet completed after only recording attempts")
	}
}

func TestMarkSuccessSetsCompleted(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now()

	if err := s.MarkSuccess("IMG_0002.raw", now); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	if !s.IsBackgroundExportCompleted("IMG_0002.raw") {
		t.Fatal("expected IsBackgroundExportCompleted true after MarkSuccess")
	}
}

func TestMarkFailureLeavesEntryEligibleForRetry(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now()

	if err := s.RecordAttempt("IMG_0003.raw", now); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	diskFull := LastError{Code: "DISK_FULL", Message: "Not enough disk space.", Context: map[string]string{"destination": "IMG_0003.raw"}}
	if err := s.MarkFailure("IMG_0003.raw", diskFull); err != nil {
		t.Fatalf("MarkFailure: %v", err)
	}
	if s.IsBackgroundExportCompleted("IMG_0003.raw") {
		t.Fatal("expected MarkFailure to leave the photo incomplete")
	}
	m := s.Load()
	if m.Photos[0].LastError == nil || m.Photos[0].LastError.Code != "DISK_FULL" {
		t.Fatalf("expected LastError.Code DISK_FULL, got %+v", m.Photos[0].LastError)
	}
	if m.Photos[0].LastError.Message != diskFull.Message {
		t.Fatalf("expected LastError.Message %q, got %q", diskFull.Message, m.Photos[0].LastError.Message)
	}
}

func TestMarkSuccessClearsPriorError(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now()

	diskFull := LastError{Code: "DISK_FULL", Message: "Not enough disk space."}
	if err := s.MarkFailure("IMG_0004.raw", diskFull); err != nil {
		t.Fatalf("MarkFailure: %v", err)
	}
	if err := s.MarkSuccess("IMG_0004.raw", now); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	m := s.Load()
	if m.Photos[0].LastError != nil {
		t.Fatalf("expected LastError cleared after success, got %+v", m.Photos[0].LastError)
	}
}
