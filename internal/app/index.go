package app

import (
	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

// roomIndex is the bidirectional room<->session mapping used for fan-out.
// It holds non-owning references only and is not safe for concurrent use:
// the Registry owns it and serializes access under its own lock, so that
// eviction and a membership walk can never observe each other half-done.
type roomIndex struct {
	bySession map[core.SessionID]map[domain.RoomID]struct{}
	byRoom    map[domain.RoomID]map[core.SessionID]struct{}
}

func newRoomIndex() *roomIndex {
	return &roomIndex{
		bySession: make(map[core.SessionID]map[domain.RoomID]struct{}),
		byRoom:    make(map[domain.RoomID]map[core.SessionID]struct{}),
	}
}

func (x *roomIndex) addMember(room domain.RoomID, sid core.SessionID) {
	if x.bySession[sid] == nil {
		x.bySession[sid] = make(map[domain.RoomID]struct{})
	}
	if x.byRoom[room] == nil {
		x.byRoom[room] = make(map[core.SessionID]struct{})
	}
	x.bySession[sid][room] = struct{}{}
	x.byRoom[room][sid] = struct{}{}
}

func (x *roomIndex) removeMember(room domain.RoomID, sid core.SessionID) {
	if rooms, ok := x.bySession[sid]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(x.bySession, sid)
		}
	}
	if members, ok := x.byRoom[room]; ok {
		delete(members, sid)
		if len(members) == 0 {
			// Lazy reclaim: an empty room simply stops existing.
			delete(x.byRoom, room)
		}
	}
}

// removeSession drops every membership of sid and returns the rooms it was
// in. Unknown sessions yield an empty slice.
func (x *roomIndex) removeSession(sid core.SessionID) []domain.RoomID {
	rooms := x.bySession[sid]
	out := make([]domain.RoomID, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
		x.removeMember(room, sid)
	}
	return out
}

func (x *roomIndex) membersOf(room domain.RoomID) []core.SessionID {
	members := x.byRoom[room]
	out := make([]core.SessionID, 0, len(members))
	for sid := range members {
		out = append(out, sid)
	}
	return out
}

func (x *roomIndex) roomsOf(sid core.SessionID) []domain.RoomID {
	rooms := x.bySession[sid]
	out := make([]domain.RoomID, 0, len(rooms))
	for room := range rooms {
		out = append(out, room)
	}
	return out
}
