package protocol

// Emitter is the host application's event bus, as far as this module
// is concerned: something that can receive a named UI event and an
// arbitrary JSON-able payload. The host application owns the real
// implementation (e.g. a Tauri event emitter); tests use a recording
// fake.
type Emitter interface {
	Emit(event string, payload interface{})
}

// NopEmitter discards every event. Useful as a default when a caller
// doesn't care about UI wiring (e.g. headless batch tools).
type NopEmitter struct{}

func (NopEmitter) Emit(string, interface{}) {}
