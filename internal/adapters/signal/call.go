package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

// relayCall forwards a call-signaling payload, unchanged, to every live
// session of the addressed identity. The relay is a dumb router: it performs
// no state validation, and an offline destination means the event is simply
// dropped. Missing addressing fields drop the event as well, with no error
// back to the sender.
func (ctl *Controller) relayCall(sid core.SessionID, env core.Envelope, outEvent string) {
	var addr domain.Addressed
	if err := json.Unmarshal(env.Data, &addr); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", env.Event).Msg("bad call payload")
		return
	}
	if addr.To == "" {
		log.Warn().Str("module", "signal").Str("event", env.Event).Str("sid", string(sid)).Msg("call payload missing to")
		return
	}
	// end-call carries only the destination; everything else names both ends.
	if addr.From == "" && env.Event != "end-call" {
		log.Warn().Str("module", "signal").Str("event", env.Event).Str("sid", string(sid)).Msg("call payload missing from")
		return
	}

	ctl.observeCall(sid, env, addr)

	frame, err := core.NewFrame(outEvent, env.Data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", outEvent).Msg("frame call event")
		return
	}
	n := ctl.Relay.DeliverToIdentity(addr.To, frame)
	if n == 0 {
		log.Debug().Str("module", "signal").Str("event", env.Event).Str("to", string(addr.To)).Msg("destination offline, dropped")
		return
	}
	log.Debug().Str("module", "signal").Str("event", env.Event).Str("to", string(addr.To)).Int("sessions", n).Msg("call event relayed")
}

func (ctl *Controller) observeCall(sid core.SessionID, env core.Envelope, addr domain.Addressed) {
	if ctl.Relay.Calls == nil {
		return
	}
	from := addr.From
	if from == "" {
		// end-call: fall back to the sender's own bound identity.
		from, _ = ctl.Relay.Registry.IdentityOf(sid)
	}
	callType := ""
	if env.Event == "call-user" {
		var invite domain.CallInvite
		if err := json.Unmarshal(env.Data, &invite); err == nil {
			callType = invite.CallType
		}
	}
	state := ctl.Relay.Calls.Observe(env.Event, from, addr.To, callType)
	if state != "" {
		log.Info().Str("module", "signal").Str("event", env.Event).Str("from", string(from)).Str("to", string(addr.To)).Str("state", string(state)).Msg("call state")
	}
}
