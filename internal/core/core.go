package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame is a raw JSON payload as it travels over the wire.
type Frame []byte

// SessionID identifies one live transport connection. Assigned by the
// registry on admit, never reused.
type SessionID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a frame for delivery without blocking.
	// Delivery is best-effort: there is no acknowledgment and no retry.
	TrySend(Frame) error
	Close()
}

// Envelope is the wire framing for every signal event: the event name plus an
// opaque payload. Data is kept as raw JSON so relayed payloads survive
// byte-for-byte.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func DecodeEnvelope(frame Frame) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("decode envelope: missing event")
	}
	return env, nil
}

// NewFrame wraps an already-encoded payload under the given event name. The
// frame is spliced together by hand: running the payload back through
// json.Marshal would HTML-escape it, and relayed payloads must reach their
// destination byte-for-byte.
func NewFrame(event string, data json.RawMessage) (Frame, error) {
	name, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event name: %w", err)
	}
	buf := make([]byte, 0, len(name)+len(data)+18)
	buf = append(buf, `{"event":`...)
	buf = append(buf, name...)
	if len(data) > 0 {
		if !json.Valid(data) {
			return nil, errors.New("encode envelope: payload is not valid JSON")
		}
		buf = append(buf, `,"data":`...)
		buf = append(buf, data...)
	}
	buf = append(buf, '}')
	return Frame(buf), nil
}

// MarshalFrame encodes v as the payload of an event frame. For relayed
// events prefer NewFrame with the original raw bytes.
func MarshalFrame(event string, v any) (Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return NewFrame(event, data)
}
