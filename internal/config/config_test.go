package config

import (
	"testing"
	"time"
)

func TestDefaultFillsEveryTunable(t *testing.T) {
	c := Default()
	if c.Sidecar.Mode != "mock" {
		t.Errorf("Sidecar.Mode = %q, want %q", c.Sidecar.Mode, "mock")
	}
	if c.Stabilizer.PollInterval != 200*time.Millisecond {
		t.Errorf("Stabilizer.PollInterval = %v, want 200ms", c.Stabilizer.PollInterval)
	}
	if c.Stabilizer.StableCountRequired != 3 {
		t.Errorf("Stabilizer.StableCountRequired = %d, want 3", c.Stabilizer.StableCountRequired)
	}
	if c.Monitor.MinBackoff != 5*time.Second || c.Monitor.MaxBackoff != 30*time.Second {
		t.Errorf("Monitor backoff bounds = %v/%v, want 5s/30s", c.Monitor.MinBackoff, c.Monitor.MaxBackoff)
	}
	if c.ExportQueue.Backlog != 64 {
		t.Errorf("ExportQueue.Backlog = %d, want 64", c.ExportQueue.Backlog)
	}
}

func TestCheckRejectsInvalidSidecarMode(t *testing.T) {
	c := Config{Sidecar: Sidecar{Mode: "bogus"}}
	if err := c.Check(); err == nil {
		t.Fatal("expected Check to reject an unrecognized sidecar mode")
	}
}

func TestCheckPreservesExplicitValues(t *testing.T) {
	c := Config{Sidecar: Sidecar{Mode: "real"}}
	c.Stabilizer.MaxWait = 3 * time.Second
	c.ExportQueue.Backlog = 128
	if err := c.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if c.Sidecar.Mode != "real" {
		t.Errorf("expected explicit Mode preserved, got %q", c.Sidecar.Mode)
	}
	if c.Stabilizer.MaxWait != 3*time.Second {
		t.Errorf("expected explicit MaxWait preserved, got %v", c.Stabilizer.MaxWait)
	}
	if c.ExportQueue.Backlog != 128 {
		t.Errorf("expected explicit Backlog preserved, got %d", c.ExportQueue.Backlog)
	}
}
