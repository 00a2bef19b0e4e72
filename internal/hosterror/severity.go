// Package hosterror implements the two-layer error taxonomy: wire
// errors coming off the sidecar protocol, and the host-facing errors
// shown (or hidden) to the UI, each carrying a customer-safe message
// and an optional admin diagnostic. Grounded on
// original_source/apps/boothy/src-tauri/src/error.rs.
package hosterror

// Severity classifies how loudly a host error should surface.
type Severity int

const (
	Warning Severity = iota
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Error"
	}
}
