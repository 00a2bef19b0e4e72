// Package settings supplies the export parameters the background
// pipeline uses to develop and export a raw photo, filling the
// "load_settings_for_handle" role the distilled spec left as an
// external collaborator.
package settings

import "context"

// ExportSettings controls how a background export renders its output.
type ExportSettings struct {
	JPEGQuality  int  `json:"jpegQuality"`
	KeepMetadata bool `json:"keepMetadata"`
	StripGPS     bool `json:"stripGps"`
}

// Provider resolves the export settings in effect for a session
// handle. It is injected into the export queue so a host application
// can back it with user preferences while tests use a fixed provider.
type Provider interface {
	Settings(ctx context.Context, sessionHandle string) (ExportSettings, error)
}

// Fixed always returns the same settings regardless of handle.
type Fixed struct {
	Value ExportSettings
}

// NewDefaultFixed returns the baseline export settings: quality 90,
// metadata kept, GPS stripped.
func NewDefaultFixed() Fixed {
	return Fixed{Value: ExportSettings{JPEGQuality: 90, KeepMetadata: true, StripGPS: true}}
}

// Settings implements Provider.
func (f Fixed) Settings(ctx context.Context, sessionHandle string) (ExportSettings, error) {
	return f.Value, nil
}
