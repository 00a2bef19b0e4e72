package protocol

// UI event names. These are the core's external surface and must be
// preserved verbatim for host integration tests.
const (
	EventCameraConnected      = "boothy-camera-connected"
	EventCameraError          = "boothy-camera-error"
	EventCameraStatusHint     = "boothy-camera-status-hint"
	EventCameraStatus         = "boothy-camera-status"
	EventPhotoTransferred     = "boothy-photo-transferred"
	EventCaptureStarted       = "boothy-capture-started"
	EventNewPhoto             = "boothy-new-photo"
	EventSessionFilesChanged  = "boothy-session-files-changed"
	EventImportError          = "boothy-import-error"
	EventExportProgress       = "boothy-export-progress"
)

// Method names: host-to-sidecar requests (camera.getStatus,
// camera.setSessionDestination, system.shutdown) and the
// sidecar-originated events dispatched by the reader task.
const (
	MethodCameraGetStatus             = "camera.getStatus"
	MethodCameraSetSessionDestination = "camera.setSessionDestination"
	MethodSystemShutdown              = "system.shutdown"
	MethodEventPhotoTransferred       = "event.camera.photoTransferred"
	MethodEventCaptureStarted         = "event.camera.captureStarted"
	MethodEventCameraError            = "event.camera.error"
	MethodEventStatusHint             = "event.camera.statusHint"
	MethodEventStatusChanged          = "event.camera.statusChanged"
)

// SessionFilesChangeKind is the `kind` field of boothy-session-files-changed.
type SessionFilesChangeKind string

const (
	SessionFileCreated  SessionFilesChangeKind = "created"
	SessionFileModified SessionFilesChangeKind = "modified"
	SessionFileRemoved  SessionFilesChangeKind = "removed"
)

// PhotoTransferredPayload is the payload of event.camera.photoTransferred.
type PhotoTransferredPayload struct {
	Path             string `json:"path"`
	OriginalFilename string `json:"originalFilename"`
	FileSize         int64  `json:"fileSize"`
	TransferredAt    string `json:"transferredAt"`
}

// CameraErrorPayload is the payload of event.camera.error.
type CameraErrorPayload struct {
	Error WireError `json:"error"`
}

// CameraStatusPayload is the decoded response payload of camera.getStatus.
type CameraStatusPayload struct {
	Connected         bool    `json:"connected"`
	CameraDetected    bool    `json:"cameraDetected"`
	SessionDestination *string `json:"sessionDestination,omitempty"`
	CameraModel       *string `json:"cameraModel,omitempty"`
}
