package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

// Relay performs outbound delivery over the registry: targeted delivery to
// every session of one identity, and room broadcast. Delivery is
// fire-and-forget; a failed write cancels only the failing session and never
// aborts delivery to the rest.
type Relay struct {
	Registry *Registry
	Calls    *CallTracker // optional, observe-only
}

// DeliverToIdentity sends frame to every live session bound to user and
// reports how many sessions it reached. Zero sessions means the identity is
// offline; the event is simply dropped.
func (rl *Relay) DeliverToIdentity(user domain.UserID, frame core.Frame) int {
	sent := 0
	for _, p := range rl.Registry.SessionsForIdentity(user) {
		if rl.send(p, frame) {
			sent++
		}
	}
	return sent
}

// BroadcastRoom sends frame to every member of room, skipping sessions bound
// to the exclude identity. Pass an empty exclude to reach everyone.
func (rl *Relay) BroadcastRoom(room domain.RoomID, frame core.Frame, exclude domain.UserID) int {
	sent := 0
	for _, p := range rl.Registry.MembersOf(room) {
		if exclude != "" && p.User == exclude {
			continue
		}
		if rl.send(p, frame) {
			sent++
		}
	}
	return sent
}

func (rl *Relay) send(p Peer, frame core.Frame) bool {
	if err := p.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("sid", string(p.SID)).Msg("send failed, canceling session")
		rl.Registry.Cancel(p.SID)
		return false
	}
	return true
}

type peerDisconnected struct {
	SocketID core.SessionID `json:"socketId"`
}

// OnDisconnect evicts the session and tells every room it belonged to that
// the peer is gone. The room snapshot comes out of the eviction itself, so a
// concurrent join or broadcast can never leave a room unnotified or notified
// twice. Best-effort, at-most-once.
func (rl *Relay) OnDisconnect(sid core.SessionID) {
	rooms := rl.Registry.Evict(sid)
	if len(rooms) == 0 {
		return
	}
	payload, err := json.Marshal(peerDisconnected{SocketID: sid})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode peer-disconnected")
		return
	}
	frame, err := core.NewFrame("peer-disconnected", payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("frame peer-disconnected")
		return
	}
	for _, room := range rooms {
		// A session's private room carries its own id; nobody else is in it.
		if room == domain.RoomID(sid) {
			continue
		}
		n := rl.BroadcastRoom(room, frame, "")
		log.Info().Str("module", "app.relay").Str("sid", string(sid)).Str("room", string(room)).Int("notified", n).Msg("peer disconnected")
	}
}
