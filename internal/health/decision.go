// Package health implements C3: a periodic camera-status poll and the
// auto-restart decision that decides when the sidecar must be force
// restarted because the camera appears to have gone missing.
package health

import (
	"time"

	"github.com/boothy-app/camera-core/internal/config"
	"github.com/boothy-app/camera-core/internal/supervisor"
)

// Status is the decoded camera.getStatus response this component cares
// about.
type Status struct {
	Connected      bool
	CameraDetected bool
}

// Reason is the closed set of auto-restart reasons.
type Reason int

const (
	NoRestart Reason = iota
	LostAfterDetected
	ProlongedNoCamera
)

func (r Reason) String() string {
	switch r {
	case LostAfterDetected:
		return "LostAfterDetected"
	case ProlongedNoCamera:
		return "ProlongedNoCamera"
	default:
		return "none"
	}
}

const (
	lostAfterDetectedStreak  = 4
	lostAfterDetectedElapsed = 20 * time.Second
	prolongedNoCameraStreak  = 8
	prolongedNoCameraElapsed = 45 * time.Second
)

// decide is the pure auto-restart decision function: same inputs yield
// same outputs (P6), and lastForcedRestartAt in the returned state is
// only changed when the decision is "restart".
func decide(
	ipcState supervisor.ConnectionState,
	status Status,
	state supervisor.CameraMonitorState,
	now time.Time,
	cfg config.Monitor,
) (shouldRestart bool, reason Reason, next supervisor.CameraMonitorState) {
	next = state

	if ipcState == supervisor.Disconnected {
		return false, NoRestart, next
	}

	if status.Connected && status.CameraDetected {
		next.NoCameraStreak = 0
		next.NoCameraSince = nil
		t := now
		next.LastCameraDetectedAt = &t
		return false, NoRestart, next
	}

	if !status.Connected {
		next.NoCameraStreak = 0
		next.NoCameraSince = nil
		return false, NoRestart, next
	}

	if state.SidecarConnectedAt != nil && now.Sub(*state.SidecarConnectedAt) < cfg.StartupGrace {
		next.NoCameraStreak = 0
		next.NoCameraSince = nil
		return false, NoRestart, next
	}

	if next.NoCameraStreak < ^uint(0) {
		next.NoCameraStreak++
	}
	if next.NoCameraSince == nil {
		t := now
		next.NoCameraSince = &t
	}

	if state.LastForcedRestartAt != nil && now.Sub(*state.LastForcedRestartAt) < cfg.RestartThrottle {
		return false, NoRestart, next
	}

	everDetected := state.LastCameraDetectedAt != nil
	switch {
	case everDetected && next.NoCameraStreak >= lostAfterDetectedStreak &&
		next.NoCameraSince != nil && now.Sub(*next.NoCameraSince) >= lostAfterDetectedElapsed:
		t := now
		next.LastForcedRestartAt = &t
		return true, LostAfterDetected, next
	case !everDetected && next.NoCameraStreak >= prolongedNoCameraStreak &&
		next.NoCameraSince != nil && now.Sub(*next.NoCameraSince) >= prolongedNoCameraElapsed:
		t := now
		next.LastForcedRestartAt = &t
		return true, ProlongedNoCamera, next
	default:
		return false, NoRestart, next
	}
}
