// Package storagehealth guards C5 against starting background exports
// onto a disk that is close to full.
package storagehealth

import "context"

// Checker reports whether the destination volume has enough headroom
// to accept another export. It is injected into the export queue so
// tests can substitute a fixed answer.
type Checker interface {
	Healthy(ctx context.Context) (bool, error)
}

// AlwaysHealthy never blocks an export; the default for platforms or
// tests where disk-space lockout does not apply.
type AlwaysHealthy struct{}

// Healthy always returns true.
func (AlwaysHealthy) Healthy(ctx context.Context) (bool, error) {
	return true, nil
}
