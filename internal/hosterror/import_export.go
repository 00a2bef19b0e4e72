package hosterror

const (
	CodeImportFailed      = "IMPORT_FAILED"
	CodeFileNotStable     = "FILE_NOT_STABLE"
	CodeFileCorrupted     = "FILE_CORRUPTED"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	CodeExportFailed     = "EXPORT_FAILED"
	CodeDiskFull         = "DISK_FULL"
	CodePermissionDenied = "PERMISSION_DENIED"

	CodeBackgroundExportCancelled = "BACKGROUND_EXPORT_CANCELLED"
	CodeSettingsLoadFailed        = "SETTINGS_LOAD_FAILED"
)

// ImportFailed reports a failure to ingest a newly-arrived file.
func ImportFailed(filePath, diagnostic string) HostError {
	return newError(CodeImportFailed,
		"Failed to import photo. The file may be corrupted.", Error).
		WithDiagnostic(diagnostic).WithContext("filePath", filePath)
}

// ImportUnsupportedFormat reports a file whose extension is not
// whitelisted for ingest.
func ImportUnsupportedFormat(filePath string) HostError {
	return newError(CodeUnsupportedFormat,
		"Unsupported file format. Only RAW and JPEG files are supported.", Warning).
		WithContext("filePath", filePath)
}

// ExportFailed reports a failed develop/export of a raw file.
func ExportFailed(destination, diagnostic string) HostError {
	return newError(CodeExportFailed,
		"Failed to export image. Please try again or choose a different location.", Error).
		WithDiagnostic(diagnostic).WithContext("destination", destination)
}

// ExportDiskFull reports an export aborted due to insufficient storage.
func ExportDiskFull(destination string) HostError {
	return newError(CodeDiskFull,
		"Not enough disk space. Please free up space and try again.", Error).
		WithContext("destination", destination)
}

// ExportPermissionDenied reports an export aborted because the
// destination could not be written to.
func ExportPermissionDenied(destination string) HostError {
	return newError(CodePermissionDenied,
		"Permission denied writing to the export destination.", Error).
		WithContext("destination", destination)
}

// BackgroundExportCancelled reports a background export that did not
// finish because cancellation was requested mid-job, or that was still
// waiting in the backlog when the queue was closed.
func BackgroundExportCancelled(rawFilename string) HostError {
	return newError(CodeBackgroundExportCancelled,
		"Background export cancelled.", Warning).
		WithContext("rawFilename", rawFilename)
}

// SettingsLoadFailed reports that the injected settings provider could
// not resolve export settings for a session handle.
func SettingsLoadFailed(sessionHandle, diagnostic string) HostError {
	return newError(CodeSettingsLoadFailed,
		"Failed to load export settings for this session.", Error).
		WithDiagnostic(diagnostic).WithContext("sessionHandle", sessionHandle)
}
