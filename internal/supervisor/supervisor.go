// Package supervisor implements C2: the sidecar process supervisor. It
// owns the pipe transport (C1), drives the camera-health monitor (C3)
// on every successful connect, and exposes start/stop/sendRequest and a
// read-only diagnostics snapshot to the rest of the host application.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/boothy-app/camera-core/internal/corelog"
	"github.com/boothy-app/camera-core/internal/hosterror"
	"github.com/boothy-app/camera-core/internal/pipetransport"
	"github.com/boothy-app/camera-core/internal/protocol"
)

// Dialer matches pipetransport.DialWithRetry's signature, injectable
// for tests that fake the pipe endpoint.
type Dialer func(ctx context.Context, name string, attempts int, delay time.Duration) (pipetransport.Conn, error)

type writeRequest struct {
	data []byte
	ack  chan error
}

// Supervisor is C2. Construct with New, then call Start.
type Supervisor struct {
	pipeName   string
	binaryPath string
	mode       string

	logger   corelog.Logger
	emitter  protocol.Emitter
	launcher Launcher
	dial     Dialer

	diagnostics *diagnosticsRecord
	pending     *pendingTable
	starting    atomic.Bool

	// onConnected is invoked in its own goroutine after every successful
	// transition to Connected; the health monitor (C3) is wired in here
	// by the host application, keeping C2 ignorant of C3's internals.
	onConnected func(ctx context.Context, sv *Supervisor)

	mu         sync.Mutex
	conn       pipetransport.Conn
	process    Process
	writeCh    chan writeRequest
	writerDone chan struct{}

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New builds a Supervisor. pipeName, binaryPath and mode come from
// config.Sidecar; onConnected may be nil.
func New(pipeName, binaryPath, mode string, logger corelog.Logger, emitter protocol.Emitter, launcher Launcher, onConnected func(context.Context, *Supervisor)) *Supervisor {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		pipeName:    pipeName,
		binaryPath:  binaryPath,
		mode:        mode,
		logger:      logger,
		emitter:     emitter,
		launcher:    launcher,
		dial:        pipetransport.DialWithRetry,
		diagnostics: newDiagnosticsRecord(protocol.Version),
		pending:     newPendingTable(),
		onConnected: onConnected,
		rootCtx:     ctx,
		rootCancel:  cancel,
	}
}

// WithDialer overrides the dialer, for tests.
func (sv *Supervisor) WithDialer(d Dialer) *Supervisor {
	sv.dial = d
	return sv
}

// DiagnosticsSnapshot is a pure, consistent read of the guarded record.
func (sv *Supervisor) DiagnosticsSnapshot() Diagnostics {
	return sv.diagnostics.snapshot()
}

// ConnectionState is a pure read of the connection state, for the
// health monitor's "still Connected?" guard.
func (sv *Supervisor) ConnectionState() ConnectionState {
	return sv.diagnostics.state()
}

// CameraState is a pure read of the camera-monitor state C3 owns
// jointly with C2.
func (sv *Supervisor) CameraState() CameraMonitorState {
	return sv.diagnostics.snapshot().Camera
}

// MutateCameraState applies fn to the guarded camera-monitor state.
func (sv *Supervisor) MutateCameraState(fn func(*CameraMonitorState)) {
	sv.diagnostics.mutate(func(d *Diagnostics) { fn(&d.Camera) })
}

// ForceRestart tears down the current connection and child process (if
// any) and starts a fresh one, per the health monitor's auto-restart
// decision.
func (sv *Supervisor) ForceRestart(ctx context.Context, reason string) error {
	sv.mu.Lock()
	proc := sv.process
	sv.process = nil
	sv.mu.Unlock()

	sv.transitionDisconnected(errors.New("forced restart: "+reason), true)
	if proc != nil {
		proc.Kill()
	}
	return sv.Start(ctx)
}

// Start is idempotent: a concurrent caller while a start is already in
// progress waits for it to finish rather than racing a second attempt.
func (sv *Supervisor) Start(ctx context.Context) error {
	if sv.diagnostics.state() == Connected {
		sv.diagnostics.mutate(func(d *Diagnostics) { d.LastError = "" })
		return nil
	}

	if !sv.starting.CompareAndSwap(false, true) {
		deadline := time.Now().Add(3 * time.Second)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for time.Now().Before(deadline) {
			if sv.diagnostics.state() == Connected {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if sv.diagnostics.state() == Connected {
			return nil
		}
		return errors.New("supervisor: start already in progress")
	}
	defer sv.starting.Store(false)

	sv.diagnostics.mutate(func(d *Diagnostics) { d.ConnectionState = Reconnecting })
	connectionTransitions.WithLabelValues("Reconnecting").Inc()

	// Step 4: quick probe in case a pipe server is already listening
	// (e.g. the previous sidecar survived a host restart).
	if conn, err := sv.dial(ctx, sv.pipeName, 2, 100*time.Millisecond); err == nil {
		sv.installConnection(conn)
		return nil
	}

	// Step 5: if our own child is still alive, give it a few more tries
	// before paying for a respawn.
	sv.mu.Lock()
	proc := sv.process
	sv.mu.Unlock()
	if proc != nil && proc.Alive() {
		if conn, err := sv.dial(ctx, sv.pipeName, 3, 200*time.Millisecond); err == nil {
			sv.installConnection(conn)
			return nil
		}
		proc.Kill()
	}

	// Step 6: spawn a fresh child.
	newProc, err := sv.launcher.Launch(ctx, sv.binaryPath, sv.mode, sv.logger)
	if err != nil {
		he := hosterror.IPCSidecarStartFailed(err.Error())
		sv.recordStartFailure(he)
		return he
	}
	sv.mu.Lock()
	sv.process = newProc
	sv.mu.Unlock()

	// Step 7: give the sidecar time to bind its pipe server.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		newProc.Kill()
		return ctx.Err()
	}

	// Step 8: connect, recording failure in diagnostics this time.
	conn, err := sv.dial(ctx, sv.pipeName, 10, 200*time.Millisecond)
	if err != nil {
		newProc.Kill()
		he := hosterror.IPCSidecarStartFailed(err.Error())
		sv.recordStartFailure(he)
		return he
	}

	// Step 9.
	sv.installConnection(conn)
	return nil
}

func (sv *Supervisor) recordStartFailure(he hosterror.HostError) {
	sv.diagnostics.mutate(func(d *Diagnostics) {
		d.ConnectionState = Disconnected
		d.LastError = he.Error()
	})
	connectionTransitions.WithLabelValues("Disconnected").Inc()
}

func (sv *Supervisor) installConnection(conn pipetransport.Conn) {
	writeCh := make(chan writeRequest)
	doneCh := make(chan struct{})

	sv.mu.Lock()
	sv.conn = conn
	sv.writeCh = writeCh
	sv.writerDone = doneCh
	sv.mu.Unlock()

	go sv.writerLoop(writeCh, doneCh, conn)
	go sv.readerLoop(conn)

	now := time.Now()
	sv.diagnostics.mutate(func(d *Diagnostics) {
		prevRestart := d.Camera.LastForcedRestartAt
		d.ConnectionState = Connected
		d.LastError = ""
		d.Camera = CameraMonitorState{SidecarConnectedAt: &now, LastForcedRestartAt: prevRestart}
	})
	connectionTransitions.WithLabelValues("Connected").Inc()
	sv.emitter.Emit(protocol.EventCameraConnected, nil)

	if sv.onConnected != nil {
		go sv.onConnected(sv.rootCtx, sv)
	}
}

// Stop performs a best-effort shutdown: send system.shutdown if
// connected, then drop writer/reader, kill the child, and wait.
func (sv *Supervisor) Stop(ctx context.Context) error {
	if sv.diagnostics.state() == Connected {
		shutdownCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		_, _ = sv.SendRequest(shutdownCtx, protocol.MethodSystemShutdown, nil, "", 1*time.Second, false)
		cancel()
	}

	sv.mu.Lock()
	conn := sv.conn
	proc := sv.process
	sv.conn = nil
	sv.process = nil
	sv.mu.Unlock()

	var errs error
	if conn != nil {
		errs = multierr.Append(errs, conn.Close())
	}
	if proc != nil {
		errs = multierr.Append(errs, proc.Kill())
	}

	sv.pending.drainDisconnect(hosterror.IPCDisconnect())
	sv.diagnostics.mutate(func(d *Diagnostics) { d.ConnectionState = Disconnected })
	connectionTransitions.WithLabelValues("Disconnected").Inc()
	sv.rootCancel()
	return errs
}

// SendRequest serializes a request, inserts a pending entry, submits it
// to the writer task, and awaits the ack then the response.
func (sv *Supervisor) SendRequest(ctx context.Context, method string, payload interface{}, correlationID string, timeout time.Duration, emitErrorsToUI bool) (json.RawMessage, error) {
	if sv.diagnostics.state() != Connected {
		return nil, hosterror.IPCDisconnect()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	start := time.Now()
	defer func() { requestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds()) }()

	requestID := newRequestID()
	env, err := protocol.NewRequest(requestID, correlationID, method, payload)
	if err != nil {
		return nil, err
	}
	data, err := env.Encode()
	if err != nil {
		return nil, err
	}

	sv.diagnostics.mutate(func(d *Diagnostics) {
		d.LastRequestID = requestID
		d.LastCorrelationID = correlationID
	})

	replyCh := sv.pending.insert(requestID)

	sv.mu.Lock()
	writeCh := sv.writeCh
	writerDone := sv.writerDone
	sv.mu.Unlock()
	if writeCh == nil {
		sv.pending.remove(requestID)
		return nil, errors.New("pipe writer not available")
	}

	ackCh := make(chan error, 1)
	select {
	case writeCh <- writeRequest{data: data, ack: ackCh}:
	case <-writerDone:
		sv.pending.remove(requestID)
		return nil, errors.New("pipe writer not available")
	case <-ctx.Done():
		sv.pending.remove(requestID)
		return nil, ctx.Err()
	}

	ackTimer := time.NewTimer(1500 * time.Millisecond)
	defer ackTimer.Stop()
	select {
	case writeErr := <-ackCh:
		if writeErr != nil {
			sv.pending.remove(requestID)
			requestsTotal.WithLabelValues(method, "write_error").Inc()
			return nil, writeErr
		}
	case <-ackTimer.C:
		sv.pending.remove(requestID)
		requestsTotal.WithLabelValues(method, "ack_timeout").Inc()
		sv.handleStuckSidecar(emitErrorsToUI)
		return nil, hosterror.IPCTimeout(method)
	case <-ctx.Done():
		sv.pending.remove(requestID)
		return nil, ctx.Err()
	}

	respTimer := time.NewTimer(timeout)
	defer respTimer.Stop()
	select {
	case res, ok := <-replyCh:
		if !ok {
			requestsTotal.WithLabelValues(method, "channel_closed").Inc()
			sv.handleStuckSidecar(emitErrorsToUI)
			return nil, hosterror.IPCTimeout(method)
		}
		if res.Err != nil {
			requestsTotal.WithLabelValues(method, "error").Inc()
			if emitErrorsToUI {
				sv.emitHostError(res.Err, correlationID)
			}
			return nil, res.Err
		}
		requestsTotal.WithLabelValues(method, "ok").Inc()
		return res.Payload, nil
	case <-respTimer.C:
		sv.pending.remove(requestID)
		requestsTotal.WithLabelValues(method, "response_timeout").Inc()
		if emitErrorsToUI {
			sv.emitHostError(hosterror.IPCTimeout(method), correlationID)
		}
		sv.handleStuckSidecar(emitErrorsToUI)
		return nil, hosterror.IPCTimeout(method)
	case <-ctx.Done():
		sv.pending.remove(requestID)
		return nil, ctx.Err()
	}
}

func (sv *Supervisor) handleStuckSidecar(emit bool) {
	sv.transitionDisconnected(errors.New("sidecar unresponsive"), emit)
	sv.scheduleRestart(400 * time.Millisecond)
}

func (sv *Supervisor) transitionDisconnected(cause error, emit bool) {
	sv.mu.Lock()
	conn := sv.conn
	sv.conn = nil
	sv.writeCh = nil
	sv.mu.Unlock()
	if conn != nil {
		conn.Close()
	}

	sv.pending.drainDisconnect(hosterror.IPCDisconnect())

	already := false
	sv.diagnostics.mutate(func(d *Diagnostics) {
		if d.ConnectionState == Disconnected {
			already = true
			return
		}
		d.ConnectionState = Disconnected
		d.LastError = cause.Error()
	})
	if already {
		return
	}
	connectionTransitions.WithLabelValues("Disconnected").Inc()
	if emit {
		sv.emitHostError(hosterror.IPCDisconnect(), "")
	}
}

func (sv *Supervisor) scheduleRestart(delay time.Duration) {
	go func() {
		select {
		case <-time.After(delay):
		case <-sv.rootCtx.Done():
			return
		}
		if sv.diagnostics.state() == Disconnected {
			if err := sv.Start(sv.rootCtx); err != nil {
				sv.logger.Error("scheduled sidecar restart failed", corelog.Error(err))
			}
		}
	}()
}

func (sv *Supervisor) writerLoop(writeCh chan writeRequest, doneCh chan struct{}, conn pipetransport.Conn) {
	defer close(doneCh)
	for req := range writeCh {
		err := conn.WriteFrame(req.data)
		req.ack <- err
		if err != nil {
			return
		}
	}
}

func (sv *Supervisor) readerLoop(conn pipetransport.Conn) {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			sv.transitionDisconnected(err, true)
			return
		}
		if len(line) == 0 {
			continue
		}
		env, err := protocol.Decode(line)
		if err != nil {
			sv.logger.Warn("malformed frame from sidecar, ignoring", corelog.Error(err))
			continue
		}
		if env.ProtocolVersion != protocol.Version {
			sv.logger.Error("protocol version mismatch",
				corelog.String("got", env.ProtocolVersion), corelog.String("want", protocol.Version))
			sv.transitionDisconnected(hosterror.FromWireError(hosterror.WireVersionMismatch,
				"sidecar protocol version mismatch", nil), true)
			return
		}
		sv.dispatch(env)
	}
}

func (sv *Supervisor) dispatch(env protocol.Envelope) {
	switch env.MessageType {
	case protocol.MessageEvent:
		sv.dispatchEvent(env)
	case protocol.MessageResponse:
		if env.RequestID == "" {
			sv.logger.Warn("response envelope missing requestId")
			return
		}
		if !sv.pending.resolve(env.RequestID, pendingResult{Payload: env.Payload}) {
			sv.logger.Warn("response for unknown requestId", corelog.String("requestId", env.RequestID))
		}
	case protocol.MessageError:
		sv.dispatchError(env)
	case protocol.MessageRequest:
		sv.logger.Warn("unexpected request direction from sidecar", corelog.String("method", env.Method))
	default:
		sv.logger.Warn("unknown message type", corelog.String("messageType", string(env.MessageType)))
	}
}

func (sv *Supervisor) dispatchError(env protocol.Envelope) {
	var code hosterror.WireCode = hosterror.WireUnknown
	message := "unknown sidecar error"
	var context map[string]string
	if env.Error != nil {
		code = env.Error.Code
		message = env.Error.Message
		context = env.Error.Context
	}
	he := hosterror.FromWireError(code, message, context)
	sv.diagnostics.mutate(func(d *Diagnostics) { d.LastError = he.Error() })

	if env.RequestID != "" {
		if !sv.pending.resolve(env.RequestID, pendingResult{Err: he}) {
			sv.logger.Warn("error for unknown requestId", corelog.String("requestId", env.RequestID))
		}
		return
	}
	sv.emitHostError(he, env.CorrelationID)
}

func (sv *Supervisor) dispatchEvent(env protocol.Envelope) {
	switch env.Method {
	case protocol.MethodEventPhotoTransferred:
		var payload protocol.PhotoTransferredPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			sv.logger.Warn("malformed photoTransferred event", corelog.Error(err))
			return
		}
		sv.emitter.Emit(protocol.EventPhotoTransferred, photoTransferredEvent{
			Path:          payload.Path,
			Filename:      baseName(payload.Path),
			FileSize:      payload.FileSize,
			TransferredAt: payload.TransferredAt,
			CorrelationID: env.CorrelationID,
		})
	case protocol.MethodEventCaptureStarted:
		sv.emitter.Emit(protocol.EventCaptureStarted, map[string]string{"correlationId": env.CorrelationID})
	case protocol.MethodEventCameraError:
		var payload protocol.CameraErrorPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			sv.logger.Warn("malformed camera error event", corelog.Error(err))
			return
		}
		he := hosterror.FromWireError(payload.Error.Code, payload.Error.Message, payload.Error.Context)
		sv.diagnostics.mutate(func(d *Diagnostics) { d.LastError = he.Error() })
		sv.emitHostError(he, env.CorrelationID)
	case protocol.MethodEventStatusHint:
		sv.emitter.Emit(protocol.EventCameraStatusHint, rawEventPayload(env))
	case protocol.MethodEventStatusChanged:
		sv.emitter.Emit(protocol.EventCameraStatus, rawEventPayload(env))
	default:
		sv.logger.Warn("unknown event method, dropping", corelog.String("method", env.Method))
	}
}

func (sv *Supervisor) emitHostError(he error, correlationID string) {
	var hostErr hosterror.HostError
	if converted, ok := he.(hosterror.HostError); ok {
		hostErr = converted
	} else {
		hostErr = hosterror.HostError{Code: "UNKNOWN", Message: he.Error(), Severity: hosterror.Error}
	}
	sv.emitter.Emit(protocol.EventCameraError, hostErrorEvent{
		Code:          hostErr.Code,
		Message:       hostErr.Message,
		Diagnostic:    hostErr.Diagnostic,
		CorrelationID: correlationID,
	})
}

type photoTransferredEvent struct {
	Path          string `json:"path"`
	Filename      string `json:"filename"`
	FileSize      int64  `json:"fileSize"`
	TransferredAt string `json:"transferredAt"`
	CorrelationID string `json:"correlationId"`
}

type hostErrorEvent struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Diagnostic    string `json:"diagnostic,omitempty"`
	CorrelationID string `json:"correlationId"`
}

func rawEventPayload(env protocol.Envelope) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	if len(env.Payload) > 0 {
		_ = json.Unmarshal(env.Payload, &out)
	}
	return out
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
