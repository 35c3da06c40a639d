package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	// Any exit here must close the transport: readPump sits in ReadMessage
	// with no deadline, and only a closed conn unblocks it into the
	// disconnect path.
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.onClose(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(sid, c, data)
		}
	}
}

func (ctl *Controller) onClose(sid core.SessionID) {
	user, bound := ctl.Relay.Registry.IdentityOf(sid)
	ctl.Relay.OnDisconnect(sid)
	if bound && ctl.Relay.Calls != nil && len(ctl.Relay.Registry.SessionsForIdentity(user)) == 0 {
		ctl.Relay.Calls.Forget(user)
	}
}

// handleEvent is the single dispatch point for inbound events. Unknown or
// malformed events are dropped; nothing is ever reported back to the sender.
func (ctl *Controller) handleEvent(sid core.SessionID, c *wsConn, data core.Frame) {
	env, err := core.DecodeEnvelope(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		return
	}

	switch env.Event {
	case "setup":
		ctl.handleSetup(sid, c, env.Data)
	case "join chat":
		ctl.handleJoinChat(sid, env.Data)
	case "new message":
		ctl.handleNewMessage(sid, env.Data)
	case "call-user":
		ctl.relayCall(sid, env, "incoming-call")
	case "call-accepted", "prepare-call", "ready-for-offer",
		"webrtc-offer", "webrtc-answer", "webrtc-ice-candidate", "end-call":
		ctl.relayCall(sid, env, env.Event)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown event")
	}
}
