package app

import (
	"sync"
	"time"

	"github.com/vkuzmin/chatrelay/internal/domain"
)

// CallState is the relay's best guess at where a call attempt stands, derived
// purely from the events it has forwarded. Delivery is unordered and
// best-effort, so this is observational only: the tracker never gates or
// rewrites an event, it exists for logs and the debug API.
type CallState string

const (
	CallRinging     CallState = "ringing"
	CallAccepted    CallState = "accepted"
	CallPreparing   CallState = "preparing"
	CallNegotiating CallState = "negotiating"
	CallEnded       CallState = "ended"
)

type CallAttempt struct {
	Caller    domain.UserID `json:"caller"`
	Callee    domain.UserID `json:"callee"`
	CallType  string        `json:"callType,omitempty"`
	State     CallState     `json:"state"`
	LastEvent string        `json:"lastEvent"`
	StartedAt time.Time     `json:"startedAt"`
}

type pairKey struct{ a, b domain.UserID }

func keyFor(x, y domain.UserID) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// CallTracker keeps one record per identity pair with an attempt in flight.
// It does not enforce "one active call per pair"; whoever issues call-user
// owns that decision.
type CallTracker struct {
	mu       sync.RWMutex
	attempts map[pairKey]*CallAttempt
	now      func() time.Time
}

func NewCallTracker() *CallTracker {
	return &CallTracker{
		attempts: make(map[pairKey]*CallAttempt),
		now:      time.Now,
	}
}

// Observe records a forwarded signaling event and returns the resulting
// state. Events for pairs with no open attempt other than call-user are
// ignored rather than invented.
func (t *CallTracker) Observe(event string, from, to domain.UserID, callType string) CallState {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := keyFor(from, to)

	if event == "call-user" {
		t.attempts[key] = &CallAttempt{
			Caller:    from,
			Callee:    to,
			CallType:  callType,
			State:     CallRinging,
			LastEvent: event,
			StartedAt: t.now(),
		}
		return CallRinging
	}

	att, ok := t.attempts[key]
	if !ok {
		return ""
	}
	switch event {
	case "call-accepted":
		att.State = CallAccepted
	case "prepare-call", "ready-for-offer":
		att.State = CallPreparing
	case "webrtc-offer", "webrtc-answer", "webrtc-ice-candidate":
		att.State = CallNegotiating
	case "end-call":
		att.State = CallEnded
		delete(t.attempts, key)
	default:
		return att.State
	}
	att.LastEvent = event
	return att.State
}

// Forget drops any attempt involving user, called when the user's last
// session goes away.
func (t *CallTracker) Forget(user domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.attempts {
		if key.a == user || key.b == user {
			delete(t.attempts, key)
		}
	}
}

// Snapshot lists in-flight attempts for the debug API.
func (t *CallTracker) Snapshot() []CallAttempt {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]CallAttempt, 0, len(t.attempts))
	for _, att := range t.attempts {
		out = append(out, *att)
	}
	return out
}
