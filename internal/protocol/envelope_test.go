package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/boothy-app/camera-core/internal/hosterror"
)

func TestNewRequestMarshalsPayload(t *testing.T) {
	env, err := NewRequest("req-1", "corr-1", "camera.capture", map[string]int{"count": 2})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if env.ProtocolVersion != Version {
		t.Errorf("ProtocolVersion = %q, want %q", env.ProtocolVersion, Version)
	}
	if env.MessageType != MessageRequest {
		t.Errorf("MessageType = %q, want %q", env.MessageType, MessageRequest)
	}
	var payload map[string]int
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["count"] != 2 {
		t.Errorf("payload count = %d, want 2", payload["count"])
	}
}

func TestNewRequestNilPayload(t *testing.T) {
	env, err := NewRequest("req-1", "corr-1", "camera.getStatus", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if env.Payload != nil {
		t.Errorf("expected nil payload, got %s", env.Payload)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env, err := NewRequest("req-2", "corr-2", "camera.capture", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	encoded, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasSuffix(string(encoded), "\n") {
		t.Fatal("expected Encode to terminate with exactly one trailing newline")
	}
	if strings.Count(string(encoded), "\n") != 1 {
		t.Fatalf("expected exactly one newline in encoded frame, got %d", strings.Count(string(encoded), "\n"))
	}

	decoded, err := Decode(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.RequestID != env.RequestID || decoded.Method != env.Method {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, env)
	}
}

func TestEncodeErrorEnvelope(t *testing.T) {
	env := Envelope{
		ProtocolVersion: Version,
		MessageType:     MessageError,
		CorrelationID:   "corr-3",
		Method:          "camera.capture",
		Error: &WireError{
			Code:    hosterror.WireCaptureFailed,
			Message: "shutter jammed",
		},
	}
	encoded, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded[:len(encoded)-1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != hosterror.WireCaptureFailed {
		t.Fatalf("expected decoded error code %q, got %+v", hosterror.WireCaptureFailed, decoded.Error)
	}
}

func TestDecodeRejectsMalformedLine(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected Decode to reject a non-JSON line")
	}
}
