package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/atomic"

	"github.com/boothy-app/camera-core/internal/config"
	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/protocol"
	"github.com/boothy-app/camera-core/internal/supervisor"
)

func newBackoff(cfg config.Monitor) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.MinBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // poll forever; only ConnectionState leaving Connected stops Run
	b.Reset()
	return b
}

// Monitor guards against concurrent polling loops across reconnects:
// C2 invokes Run again every time it reconnects, and Run is a no-op if
// a previous run is still active.
type Monitor struct {
	started atomic.Bool
	seq     atomic.Uint64
}

// New returns an idle monitor. Wire Run as the supervisor's onConnected
// callback.
func New() *Monitor {
	return &Monitor{}
}

// Run polls camera.getStatus until the supervisor stops being
// Connected or ctx is cancelled. It is the single long-running poller
// described as C3 in the component design; only one instance runs at a
// time per Monitor.
func (m *Monitor) Run(ctx context.Context, sv *supervisor.Supervisor, cfg config.Monitor, logger corelog.Logger, emitter protocol.Emitter) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	defer m.started.Store(false)

	select {
	case <-time.After(cfg.InitialDelay):
	case <-ctx.Done():
		return
	}

	bo := newBackoff(cfg)
	var lastStatus *Status
	lastFailed := false

	for {
		if sv.ConnectionState() != supervisor.Connected {
			return
		}

		correlationID := m.nextCorrelationID()
		payload, err := sv.SendRequest(ctx, protocol.MethodCameraGetStatus, nil, correlationID, cfg.PollTimeout, false)
		var wait time.Duration
		if err != nil {
			if !lastFailed {
				emitter.Emit(protocol.EventCameraStatusHint, statusHintEvent{
					Source:        "backendPollError",
					CorrelationID: correlationID,
				})
			}
			lastFailed = true
			wait = bo.NextBackOff()
		} else {
			lastFailed = false
			bo.Reset()
			wait = cfg.MinBackoff

			var status protocol.CameraStatusPayload
			if jsonErr := json.Unmarshal(payload, &status); jsonErr != nil {
				logger.Warn("malformed camera.getStatus response", corelog.Error(jsonErr))
			} else {
				current := Status{Connected: status.Connected, CameraDetected: status.CameraDetected}
				if lastStatus == nil || *lastStatus != current {
					emitter.Emit(protocol.EventCameraStatusHint, statusHintEvent{
						Source:        "poll",
						CorrelationID: correlationID,
					})
				}
				lastStatus = &current

				state := sv.CameraState()
				shouldRestart, reason, next := decide(sv.ConnectionState(), current, state, time.Now(), cfg)
				sv.MutateCameraState(func(s *supervisor.CameraMonitorState) { *s = next })
				if shouldRestart {
					logger.Warn("forcing sidecar restart", corelog.String("reason", reason.String()))
					go sv.ForceRestart(ctx, reason.String())
					return
				}
			}
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) nextCorrelationID() string {
	n := m.seq.Add(1)
	return fmt.Sprintf("health-%d-%d", time.Now().UnixNano(), n)
}

type statusHintEvent struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlationId"`
}
