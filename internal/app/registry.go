package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

type sessionEntry struct {
	User   domain.UserID // empty until setup
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Peer is a registry snapshot row: one live session plus the identity bound
// to it (may be empty) and its transport endpoint.
type Peer struct {
	SID  core.SessionID
	User domain.UserID
	Conn core.SignalConnection
}

// Registry tracks every live session, the identity each one is bound to, and
// the rooms it has joined. A single lock covers all three maps: eviction must
// return the room snapshot atomically with removal, and a broadcast walk must
// never see a half-evicted session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	byUser   map[domain.UserID]map[core.SessionID]struct{}
	rooms    *roomIndex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		byUser:   make(map[domain.UserID]map[core.SessionID]struct{}),
		rooms:    newRoomIndex(),
	}
}

// Admit registers a freshly connected transport. The session starts with no
// identity and no rooms; cancel unwinds the session's pumps on eviction.
func (r *Registry) Admit(conn core.SignalConnection, cancel context.CancelFunc) core.SessionID {
	sid := core.SessionID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session admitted")
	return sid
}

// BindIdentity binds the session to a user id. An empty identity is dropped.
// Rebinding with a different identity is allowed; the value is trusted as
// handed to us, verification happened before this core was reachable.
func (r *Registry) BindIdentity(sid core.SessionID, user domain.UserID) {
	if user == "" {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Msg("setup with empty identity, ignored")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	if e.User != "" {
		if set, ok := r.byUser[e.User]; ok {
			delete(set, sid)
			if len(set) == 0 {
				delete(r.byUser, e.User)
			}
		}
	}
	e.User = user
	if r.byUser[user] == nil {
		r.byUser[user] = make(map[core.SessionID]struct{})
	}
	r.byUser[user][sid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user)).Msg("identity bound")
}

// JoinRoom adds the session to a room. No-op if already a member or if the
// session is unknown.
func (r *Registry) JoinRoom(sid core.SessionID, room domain.RoomID) {
	if room == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; !ok {
		return
	}
	r.rooms.addMember(room, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
}

// IdentityOf returns the identity bound to sid, if any.
func (r *Registry) IdentityOf(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.User == "" {
		return "", false
	}
	return e.User, true
}

// SessionsForIdentity returns every live session bound to user; empty when
// the identity is offline or unknown.
func (r *Registry) SessionsForIdentity(user domain.UserID) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[user]
	out := make([]Peer, 0, len(set))
	for sid := range set {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, Peer{SID: sid, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

// MembersOf returns the sessions currently in room; empty for absent rooms.
func (r *Registry) MembersOf(room domain.RoomID) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sids := r.rooms.membersOf(room)
	out := make([]Peer, 0, len(sids))
	for _, sid := range sids {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, Peer{SID: sid, User: e.User, Conn: e.Conn})
		}
	}
	return out
}

// RoomsOf returns the rooms sid has joined; empty for unknown sessions.
func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.roomsOf(sid)
}

// Evict removes the session and all its memberships, returning the rooms it
// belonged to at the moment of removal. Snapshot and removal happen under one
// lock so the notifier works from membership info no later walk can contradict.
func (r *Registry) Evict(sid core.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	if e.User != "" {
		if set, ok := r.byUser[e.User]; ok {
			delete(set, sid)
			if len(set) == 0 {
				delete(r.byUser, e.User)
			}
		}
	}
	rooms := r.rooms.removeSession(sid)
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("session evicted")
	return rooms
}

// Cancel triggers the session's context cancellation, which unwinds its
// transport pumps and leads to the normal disconnect path. Used when a write
// to the session fails: a dead writer is an implicit disconnect.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

// Stats is a point-in-time view of registry size, for the debug API.
type Stats struct {
	Sessions   int `json:"sessions"`
	Identities int `json:"identities"`
	Rooms      int `json:"rooms"`
}

func (r *Registry) Snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Sessions:   len(r.sessions),
		Identities: len(r.byUser),
		Rooms:      len(r.rooms.byRoom),
	}
}
