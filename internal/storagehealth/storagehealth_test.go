package storagehealth

import (
	"context"
	"testing"
)

func TestAlwaysHealthyNeverBlocks(t *testing.T) {
	healthy, err := (AlwaysHealthy{}).Healthy(context.Background())
	if err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if !healthy {
		t.Fatal("expected AlwaysHealthy to always report healthy")
	}
}
