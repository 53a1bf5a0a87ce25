package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
)

type mockConn struct {
	mu     sync.Mutex
	frames []string
	full   bool
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return core.ErrBackpressure
	}
	m.frames = append(m.frames, string(f))
	return nil
}

func (m *mockConn) Close() {}

func (m *mockConn) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.frames...)
}

type peerCall struct {
	op   string
	id   core.ConnID
	data string
}

type mockPeer struct {
	mu    sync.Mutex
	calls []peerCall
	err   error
}

func (p *mockPeer) record(c peerCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	return p.err
}

func (p *mockPeer) Send(_ context.Context, id core.ConnID, data string) error {
	return p.record(peerCall{op: "send", id: id, data: data})
}

func (p *mockPeer) SendAll(_ context.Context, data string) error {
	return p.record(peerCall{op: "all", data: data})
}

func (p *mockPeer) SendAllExcept(_ context.Context, id core.ConnID, data string) error {
	return p.record(peerCall{op: "except", id: id, data: data})
}

func TestRegistry_ConnectAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	seen := make(map[core.ConnID]bool)
	for i := 0; i < 200; i++ {
		id := r.Connect(&mockConn{})
		require.False(t, seen[id], "id reused: %s", id)
		require.NotZero(t, id)
		seen[id] = true
	}
	assert.Equal(t, 200, r.VisitorCount())
}

func TestRegistry_ConnectRetriesOnCollision(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	ids := []core.ConnID{7, 7, 0, 9}
	r.newID = func() core.ConnID {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	assert.Equal(t, core.ConnID(7), r.Connect(&mockConn{}))
	assert.Equal(t, core.ConnID(9), r.Connect(&mockConn{}))
}

func TestRegistry_ConnectJoinsMain(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	id := r.Connect(&mockConn{})

	members, ok := r.RoomMembers(domain.MainRoom)
	require.True(t, ok)
	assert.Equal(t, []core.ConnID{id}, members)
	assert.Equal(t, []domain.RoomName{domain.MainRoom}, r.RoomsOf(id))
}

func TestRegistry_JoinRoomMovesAndAnnounces(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	a, b, c := &mockConn{}, &mockConn{}, &mockConn{}
	idA := r.Connect(a)
	r.Connect(b)
	idC := r.Connect(c)
	require.True(t, r.JoinRoom(idC, "lounge"))

	require.True(t, r.JoinRoom(idA, "lounge"))

	assert.Equal(t, []domain.RoomName{"lounge"}, r.RoomsOf(idA))
	main, _ := r.RoomMembers(domain.MainRoom)
	assert.NotContains(t, main, idA)
	lounge, _ := r.RoomMembers("lounge")
	assert.ElementsMatch(t, []core.ConnID{idA, idC}, lounge)

	// a heard c leave main, but none of its own announcements.
	assert.Equal(t, []string{MsgSomeoneDisconnected}, a.Messages())
	assert.Equal(t, []string{MsgSomeoneDisconnected, MsgSomeoneDisconnected}, b.Messages())
	assert.Equal(t, []string{MsgSomeoneConnected}, c.Messages())

	assert.False(t, r.JoinRoom(12345, "lounge"))
}

func TestRegistry_DisconnectCleansUp(t *testing.T) {
	live := NewLivenessTable()
	r := NewRegistry(live, nil)
	id := r.Connect(&mockConn{})
	stayer := &mockConn{}
	other := r.Connect(stayer)
	require.True(t, r.JoinRoom(id, "lounge"))
	require.True(t, r.JoinRoom(other, "lounge"))
	live.Put(id, domain.Connection{ID: "desk"})
	before := r.VisitorCount()
	heard := len(stayer.Messages())

	require.True(t, r.Disconnect(id))

	assert.Equal(t, []string{MsgSomeoneDisconnected}, stayer.Messages()[heard:])

	assert.Equal(t, before-1, r.VisitorCount())
	assert.False(t, r.Has(id))
	for _, room := range r.ListRooms() {
		members, _ := r.RoomMembers(room)
		assert.NotContains(t, members, id)
	}
	_, ok := live.Get(id)
	assert.False(t, ok)
	assert.True(t, r.Has(other))

	assert.False(t, r.Disconnect(id))
	assert.Equal(t, before-1, r.VisitorCount())
}

func TestRegistry_EmptyRoomsSurvive(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	id := r.Connect(&mockConn{})
	require.True(t, r.JoinRoom(id, "lounge"))
	r.Disconnect(id)

	assert.Contains(t, r.ListRooms(), domain.RoomName("lounge"))
	members, ok := r.RoomMembers("lounge")
	require.True(t, ok)
	assert.Empty(t, members)
}

func TestRegistry_SendAllExceptSkipsSender(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	a, b, c := &mockConn{}, &mockConn{}, &mockConn{}
	idA := r.Connect(a)
	r.Connect(b)
	r.Connect(c)

	require.NoError(t, r.SendAllExcept(context.Background(), idA, "hello"))

	assert.Empty(t, a.Messages())
	assert.Equal(t, []string{"hello"}, b.Messages())
	assert.Equal(t, []string{"hello"}, c.Messages())
}

func TestRegistry_SendFailuresAreSwallowed(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	stale := &mockConn{full: true}
	ok := &mockConn{}
	r.Connect(stale)
	r.Connect(ok)

	require.NoError(t, r.SendAll(context.Background(), "snapshot"))
	assert.Equal(t, []string{"snapshot"}, ok.Messages())

	require.NoError(t, r.Send(context.Background(), 424242, "nobody"))
}

func TestRegistry_ForwardsToPeers(t *testing.T) {
	p1, p2 := &mockPeer{}, &mockPeer{err: errors.New("peer down")}
	r := NewRegistry(NewLivenessTable(), nil, p1, p2)
	local := &mockConn{}
	id := r.Connect(local)
	ctx := context.Background()

	assert.NoError(t, r.Send(ctx, id, "one"))
	assert.NoError(t, r.SendAllExcept(ctx, 99, "two"))
	assert.Equal(t, []string{"one", "two"}, local.Messages())

	assert.Equal(t, []peerCall{{op: "send", id: id, data: "one"}, {op: "except", id: 99, data: "two"}}, p1.calls)
	assert.Len(t, p2.calls, 2)

	r.SendAllLocal("three")
	assert.Len(t, p1.calls, 2)
	assert.Equal(t, []string{"one", "two", "three"}, local.Messages())
}

func TestRegistry_SendSystemMessage(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	a, b := &mockConn{}, &mockConn{}
	idA := r.Connect(a)
	r.Connect(b)

	r.SendSystemMessage(domain.MainRoom, idA, "maintenance")
	r.SendSystemMessage("nowhere", idA, "ignored")
	r.SendMessageTo(idA, "direct")

	assert.Equal(t, []string{"direct"}, a.Messages())
	assert.Equal(t, []string{"maintenance"}, b.Messages())
	assert.Equal(t, Stats{Connections: 2, Visitors: 2, Rooms: 1}, r.Stats())
}

func TestRegistry_ConnectWithGreetsFirst(t *testing.T) {
	r := NewRegistry(NewLivenessTable(), nil)
	c := &mockConn{}
	id, err := r.ConnectWith(c, func(id core.ConnID) (core.Frame, error) {
		return core.Frame("hello " + id.String()), nil
	})
	require.NoError(t, err)
	require.NoError(t, r.SendAll(context.Background(), "snapshot"))
	assert.Equal(t, []string{"hello " + id.String(), "snapshot"}, c.Messages())

	bad := &mockConn{}
	id, err = r.ConnectWith(bad, func(core.ConnID) (core.Frame, error) { return nil, errors.New("encode") })
	assert.Error(t, err)
	assert.True(t, r.Has(id))
	assert.Empty(t, bad.Messages())
}
