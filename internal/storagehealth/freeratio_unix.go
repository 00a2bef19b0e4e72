//go:build !windows

package storagehealth

import (
	"context"
	"syscall"
)

// FreeRatioChecker is healthy so long as the free-space ratio of the
// filesystem backing Path is at or above MinFreeRatio.
type FreeRatioChecker struct {
	Path         string
	MinFreeRatio float64
}

// NewFreeRatioChecker returns a checker requiring at least 5% free
// space on the filesystem backing path, matching the low-space cutoff
// most desktop photo tools warn at.
func NewFreeRatioChecker(path string) *FreeRatioChecker {
	return &FreeRatioChecker{Path: path, MinFreeRatio: 0.05}
}

// Healthy statfs's Path and compares free blocks against the minimum
// ratio.
func (c *FreeRatioChecker) Healthy(ctx context.Context) (bool, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(c.Path, &stat); err != nil {
		return false, err
	}
	if stat.Blocks == 0 {
		return true, nil
	}
	ratio := float64(stat.Bfree) / float64(stat.Blocks)
	return ratio >= c.MinFreeRatio, nil
}
