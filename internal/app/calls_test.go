package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallTrackerLifecycle(t *testing.T) {
	tr := NewCallTracker()

	assert.Equal(t, CallRinging, tr.Observe("call-user", "A", "B", "video"))
	assert.Equal(t, CallAccepted, tr.Observe("call-accepted", "B", "A", ""))
	assert.Equal(t, CallPreparing, tr.Observe("prepare-call", "A", "B", ""))
	assert.Equal(t, CallPreparing, tr.Observe("ready-for-offer", "B", "A", ""))
	assert.Equal(t, CallNegotiating, tr.Observe("webrtc-offer", "B", "A", ""))
	assert.Equal(t, CallNegotiating, tr.Observe("webrtc-ice-candidate", "A", "B", ""))

	snap := tr.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "video", snap[0].CallType)

	assert.Equal(t, CallEnded, tr.Observe("end-call", "A", "B", ""))
	assert.Empty(t, tr.Snapshot())
}

func TestCallTrackerIgnoresEventsWithoutAttempt(t *testing.T) {
	tr := NewCallTracker()
	assert.Equal(t, CallState(""), tr.Observe("webrtc-answer", "A", "B", ""))
	assert.Empty(t, tr.Snapshot())
}

func TestCallTrackerForget(t *testing.T) {
	tr := NewCallTracker()
	tr.Observe("call-user", "A", "B", "voice")
	tr.Observe("call-user", "C", "D", "voice")

	tr.Forget("A")

	snap := tr.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, CallAttempt{Caller: "C", Callee: "D", CallType: "voice", State: CallRinging, LastEvent: "call-user", StartedAt: snap[0].StartedAt}, snap[0])
}

func TestCallTrackerNewAttemptReplacesOld(t *testing.T) {
	tr := NewCallTracker()
	tr.Observe("call-user", "A", "B", "voice")
	// Duplicate call-user for the same pair starts over; the relay does not
	// police one-active-call-per-pair.
	assert.Equal(t, CallRinging, tr.Observe("call-user", "B", "A", "video"))

	snap := tr.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "video", snap[0].CallType)
}
