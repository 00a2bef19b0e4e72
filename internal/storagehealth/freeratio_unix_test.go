//go:build !windows

package storagehealth

import (
	"context"
	"testing"
)

func TestFreeRatioCheckerReportsHealthyForRealFilesystem(t *testing.T) {
	c := NewFreeRatioChecker(t.TempDir())
	healthy, err := c.Healthy(context.Background())
	if err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if !healthy {
		t.Skip("test filesystem reports below the default free-ratio threshold")
	}
}

func TestFreeRatioCheckerRejectsUnreasonableThreshold(t *testing.T) {
	c := NewFreeRatioChecker(t.TempDir())
	c.MinFreeRatio = 2.0 // no filesystem is ever 200% free
	healthy, err := c.Healthy(context.Background())
	if err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if healthy {
		t.Fatal("expected an unreachable free-ratio threshold to report unhealthy")
	}
}
