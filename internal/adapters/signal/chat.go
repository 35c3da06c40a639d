package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

// handleSetup binds the session to the identity the client presents. The
// value is trusted here; credential checks happened before the socket was
// reachable. Only the sender learns the bind succeeded.
func (ctl *Controller) handleSetup(sid core.SessionID, c *wsConn, data json.RawMessage) {
	var p domain.SetupPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad setup payload")
		return
	}
	ctl.Relay.Registry.BindIdentity(sid, p.ID)

	frame, err := core.NewFrame("connected", nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("frame connected")
		return
	}
	_ = c.TrySend(frame)
}

func (ctl *Controller) handleJoinChat(sid core.SessionID, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join chat payload")
		return
	}
	if room == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join chat with empty room")
		return
	}
	ctl.Relay.Registry.JoinRoom(sid, domain.RoomID(room))
}

// handleNewMessage fans a chat message out to every identity in the chat's
// user list except the sender. Exclusion compares identities, so none of the
// sender's sessions get the echo. The payload goes out untouched.
func (ctl *Controller) handleNewMessage(sid core.SessionID, data json.RawMessage) {
	var env domain.MessageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad message payload")
		return
	}
	if env.Sender.ID == "" || len(env.Chat.Users) == 0 {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("message without sender or recipients")
		return
	}

	frame, err := core.NewFrame("message received", data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("frame message received")
		return
	}

	sent := 0
	for _, u := range env.Chat.Users {
		if u.ID == "" || u.ID == env.Sender.ID {
			continue
		}
		sent += ctl.Relay.DeliverToIdentity(u.ID, frame)
	}
	log.Debug().Str("module", "signal").Str("chat", env.Chat.ID).Str("sender", string(env.Sender.ID)).Int("sent_to", sent).Msg("message fanned out")
}
