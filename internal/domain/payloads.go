package domain

// Wire payload shapes for inbound signal events. Only the addressing fields
// are decoded; everything else in the payload stays opaque and is forwarded
// as received.

// SetupPayload carries the identity a session binds to. The value is trusted
// as-is; verifying it is the job of whatever admitted the transport.
type SetupPayload struct {
	ID   UserID `json:"_id"`
	Name string `json:"name"`
}

// Addressed is the minimal view of any call-signaling payload: who it is for
// and who sent it.
type Addressed struct {
	To   UserID `json:"to"`
	From UserID `json:"from"`
}

// CallInvite is the payload of a call-user event.
type CallInvite struct {
	To       UserID `json:"to"`
	From     UserID `json:"from"`
	Name     string `json:"name"`
	CallType string `json:"callType"`
}

// MessageEnvelope is the slice of a chat message the relay needs for
// addressing: the chat's user list and the sender. The full payload is
// forwarded untouched.
type MessageEnvelope struct {
	Chat struct {
		ID    string `json:"_id"`
		Users []User `json:"users"`
	} `json:"chat"`
	Sender struct {
		ID UserID `json:"_id"`
	} `json:"sender"`
}
