package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
)

type fakeConn struct {
	frames []core.Frame
	fail   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	if c.fail {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestRegistryIdentityIndex(t *testing.T) {
	r := NewRegistry()

	s1 := r.Admit(&fakeConn{}, nil)
	s2 := r.Admit(&fakeConn{}, nil)
	s3 := r.Admit(&fakeConn{}, nil)

	r.BindIdentity(s1, "u1")
	r.BindIdentity(s2, "u1")
	r.BindIdentity(s3, "u2")

	assert.Len(t, r.SessionsForIdentity("u1"), 2)
	assert.Len(t, r.SessionsForIdentity("u2"), 1)
	assert.Empty(t, r.SessionsForIdentity("ghost"))

	r.Evict(s1)
	peers := r.SessionsForIdentity("u1")
	require.Len(t, peers, 1)
	assert.Equal(t, s2, peers[0].SID)
}

func TestRegistryBindEmptyIdentityIgnored(t *testing.T) {
	r := NewRegistry()
	sid := r.Admit(&fakeConn{}, nil)

	r.BindIdentity(sid, "")

	_, bound := r.IdentityOf(sid)
	assert.False(t, bound)
}

func TestRegistryRebindMovesIdentity(t *testing.T) {
	r := NewRegistry()
	sid := r.Admit(&fakeConn{}, nil)

	r.BindIdentity(sid, "u1")
	r.BindIdentity(sid, "u2")

	assert.Empty(t, r.SessionsForIdentity("u1"))
	require.Len(t, r.SessionsForIdentity("u2"), 1)
}

func TestRegistryRoomMembership(t *testing.T) {
	r := NewRegistry()
	sid := r.Admit(&fakeConn{}, nil)

	r.JoinRoom(sid, "c1")
	r.JoinRoom(sid, "c1") // idempotent
	r.JoinRoom(sid, "c2")

	members := r.MembersOf("c1")
	require.Len(t, members, 1)
	assert.Equal(t, sid, members[0].SID)
	assert.ElementsMatch(t, []domain.RoomID{"c1", "c2"}, r.RoomsOf(sid))

	assert.Empty(t, r.MembersOf("absent"), "unknown rooms read as empty, never fail")
	assert.Empty(t, r.RoomsOf("unknown-session"))
}

func TestRegistryEvictReturnsRoomSnapshot(t *testing.T) {
	r := NewRegistry()
	sid := r.Admit(&fakeConn{}, nil)
	other := r.Admit(&fakeConn{}, nil)
	r.JoinRoom(sid, "c1")
	r.JoinRoom(sid, "c2")
	r.JoinRoom(other, "c1")

	rooms := r.Evict(sid)

	assert.ElementsMatch(t, []domain.RoomID{"c1", "c2"}, rooms)
	assert.Empty(t, r.RoomsOf(sid))
	require.Len(t, r.MembersOf("c1"), 1)
	assert.Equal(t, other, r.MembersOf("c1")[0].SID)
	// Last member gone means the room is gone.
	assert.Empty(t, r.MembersOf("c2"))

	assert.Nil(t, r.Evict(sid), "double evict is a no-op")
}

func TestRegistrySnapshotCounts(t *testing.T) {
	r := NewRegistry()
	s1 := r.Admit(&fakeConn{}, nil)
	s2 := r.Admit(&fakeConn{}, nil)
	r.BindIdentity(s1, "u1")
	r.BindIdentity(s2, "u1")
	r.JoinRoom(s1, "c1")

	stats := r.Snapshot()
	assert.Equal(t, Stats{Sessions: 2, Identities: 1, Rooms: 1}, stats)
}
