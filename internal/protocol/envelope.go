// Package protocol defines the wire format shared by C1 and C2: a
// line-delimited JSON envelope carrying requests, responses, events and
// errors between the host and the camera sidecar.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/boothy-app/camera-core/internal/hosterror"
)

// Version is the compile-time protocol version. Every outgoing envelope
// carries it; every incoming envelope is validated against it, and a
// mismatch is a fatal protocol error (the supervisor's reader loop
// disconnects on it).
const Version = "1.0.0"

// MessageType is a closed enum: request, response, event or error.
type MessageType string

const (
	MessageRequest  MessageType = "request"
	MessageResponse MessageType = "response"
	MessageEvent    MessageType = "event"
	MessageError    MessageType = "error"
)

// WireError is the `error` field of an error envelope.
type WireError struct {
	Code    hosterror.WireCode `json:"code"`
	Message string             `json:"message"`
	Context map[string]string  `json:"context,omitempty"`
}

// Envelope is a single frame of the protocol, always serialized as one
// JSON object followed by exactly one '\n'.
type Envelope struct {
	ProtocolVersion string          `json:"protocolVersion"`
	MessageType     MessageType     `json:"messageType"`
	RequestID       string          `json:"requestId,omitempty"`
	CorrelationID   string          `json:"correlationId,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	Method          string          `json:"method"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Error           *WireError      `json:"error,omitempty"`
}

// NewRequest builds an outgoing request envelope. payload is marshaled
// as-is; pass nil for no payload.
func NewRequest(requestID, correlationID, method string, payload interface{}) (Envelope, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ProtocolVersion: Version,
		MessageType:     MessageRequest,
		RequestID:       requestID,
		CorrelationID:   correlationID,
		Timestamp:       time.Now().UTC(),
		Method:          method,
		Payload:         raw,
	}, nil
}

func marshalPayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// Encode serializes the envelope followed by exactly one newline. It
// returns an error if the encoded bytes contain a raw newline anywhere
// but the trailing terminator.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	for _, b := range data {
		if b == '\n' {
			return nil, errEmbeddedNewline
		}
	}
	data = append(data, '\n')
	return data, nil
}

// Decode parses a single line (without its trailing newline) into an
// envelope.
func Decode(line []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(line, &e)
	return e, err
}

var errEmbeddedNewline = embeddedNewlineError{}

type embeddedNewlineError struct{}

func (embeddedNewlineError) Error() string {
	return "protocol: encoded envelope contains an embedded newline"
}
