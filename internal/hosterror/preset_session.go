package hosterror

const (
	CodePresetNotFound     = "PRESET_NOT_FOUND"
	CodePresetApplyFailed  = "PRESET_APPLY_FAILED"
	CodePresetLoadFailed   = "PRESET_LOAD_FAILED"

	CodeSessionCreateFailed = "SESSION_CREATE_FAILED"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeSessionLoadFailed   = "SESSION_LOAD_FAILED"
)

// PresetNotFound reports that a referenced preset id does not exist.
func PresetNotFound(presetID string) HostError {
	return newError(CodePresetNotFound,
		"Selected preset not found. Please choose another preset.", Error).
		WithContext("presetId", presetID)
}

// PresetApplyFailed reports a failure writing a preset snapshot into a
// photo's sidecar document.
func PresetApplyFailed(presetID, diagnostic string) HostError {
	return newError(CodePresetApplyFailed,
		"Failed to apply preset. Please try again.", Error).
		WithDiagnostic(diagnostic).WithContext("presetId", presetID)
}

// SessionCreateFailed reports a failure creating a new session.
func SessionCreateFailed(sessionName, diagnostic string) HostError {
	return newError(CodeSessionCreateFailed,
		"Failed to create session. Please try a different name.", Error).
		WithDiagnostic(diagnostic).WithContext("sessionName", sessionName)
}

// SessionNotFound reports a reference to a session that does not exist.
func SessionNotFound(sessionName string) HostError {
	return newError(CodeSessionNotFound,
		"Session not found.", Error).WithContext("sessionName", sessionName)
}
