package hub

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
	"github.com/zonecast/synchub/internal/storage"
)

type mockConn struct {
	mu     sync.Mutex
	frames []string
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, string(f))
	return nil
}

func (m *mockConn) Close() {}

type envelope struct {
	Type    protocol.OutboundType `json:"type"`
	Payload json.RawMessage       `json:"payload"`
}

func (m *mockConn) OfType(t *testing.T, typ protocol.OutboundType) []envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []envelope
	for _, f := range m.frames {
		var e envelope
		if json.Unmarshal([]byte(f), &e) != nil {
			continue
		}
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type testHub struct {
	server   *Server
	handle   Handle
	registry *app.Registry
	actions  *app.PlayerActionTable
	db       *storage.DB
	done     chan struct{}
}

func startHub(t *testing.T) *testHub {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)

	live := app.NewLivenessTable()
	reg := app.NewRegistry(live, nil)
	actions := app.NewPlayerActionTable()
	o := &orch.Orchestrator{
		Store:    db,
		Sender:   reg,
		Liveness: live,
		Actions:  actions,
		Policy:   app.LenientPolicy{},
	}
	server, handle := NewServer(reg, o, actions, nil)

	h := &testHub{server: server, handle: handle, registry: reg, actions: actions, db: db, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_ = server.Run(context.Background())
	}()
	t.Cleanup(func() {
		handle.Shutdown()
		<-h.done
		server.Wait()
		_ = db.Close()
	})
	return h
}

func (h *testHub) connect(t *testing.T) (core.ConnID, *mockConn) {
	t.Helper()
	c := &mockConn{}
	id, err := h.handle.Connect(context.Background(), c)
	require.NoError(t, err)
	return id, c
}

func TestHub_ConnectSendsHandshake(t *testing.T) {
	h := startHub(t)
	id, c := h.connect(t)

	got := c.OfType(t, protocol.OutConnectionID)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"connection_id":"`+id.String()+`"}`, string(got[0].Payload))
}

func TestHub_ConcurrentConnectsAreUnique(t *testing.T) {
	h := startHub(t)
	const n = 50

	var (
		mu  sync.Mutex
		ids = make(map[core.ConnID]bool)
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := h.handle.Connect(context.Background(), &mockConn{})
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, n)

	stats, err := h.handle.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, stats.Connections)
	assert.Equal(t, n, stats.Visitors)
}

func TestHub_ScenarioRegisterConnection(t *testing.T) {
	h := startHub(t)
	ctx := context.Background()
	idA, a := h.connect(t)
	_, b := h.connect(t)

	resp, err := h.handle.Message(ctx, idA, []byte(`{"type":"RegisterConnection","payload":{"connection_id":"conn-a","name":"A","players":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.Success(), resp)

	for _, c := range []*mockConn{a, b} {
		got := c.OfType(t, protocol.OutConnections)
		require.Len(t, got, 1)
		var conns []protocol.ApiConnection
		require.NoError(t, json.Unmarshal(got[0].Payload, &conns))
		require.Len(t, conns, 1)
		assert.Equal(t, "conn-a", conns[0].ConnectionID)
		assert.True(t, conns[0].Alive)
	}
}

func TestHub_ScenarioCreateSession(t *testing.T) {
	h := startHub(t)
	idA, a := h.connect(t)

	_, err := h.handle.Message(context.Background(), idA, []byte(`{"type":"CreateSession","payload":{"name":"Kitchen","playlist":{"tracks":[]}}}`))
	require.NoError(t, err)

	got := a.OfType(t, protocol.OutSessions)
	require.Len(t, got, 1)
	var sessions []protocol.ApiSession
	require.NoError(t, json.Unmarshal(got[0].Payload, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Kitchen", sessions[0].Name)
}

func TestHub_ScenarioUpdateSession(t *testing.T) {
	h := startHub(t)
	ctx := context.Background()
	s, err := h.db.CreateSession(ctx, domain.CreateSession{Name: "Kitchen"})
	require.NoError(t, err)
	idA, a := h.connect(t)
	_, b := h.connect(t)

	raw, err := json.Marshal(map[string]any{
		"type":    "UpdateSession",
		"payload": map[string]any{"session_id": s.ID, "playing": true},
	})
	require.NoError(t, err)
	_, err = h.handle.Message(ctx, idA, raw)
	require.NoError(t, err)

	assert.Empty(t, a.OfType(t, protocol.OutSessionUpdated))
	got := b.OfType(t, protocol.OutSessionUpdated)
	require.Len(t, got, 1)
	var upd protocol.ApiUpdateSession
	require.NoError(t, json.Unmarshal(got[0].Payload, &upd))
	require.NotNil(t, upd.Playing)
	assert.True(t, *upd.Playing)
}

func TestHub_ScenarioEmptyRoomSurvivesDisconnect(t *testing.T) {
	h := startHub(t)
	ctx := context.Background()
	idA, _ := h.connect(t)
	require.NoError(t, h.handle.JoinRoom(ctx, idA, "lounge"))

	require.NoError(t, h.handle.Disconnect(idA))
	require.Eventually(t, func() bool { return !h.registry.Has(idA) }, time.Second, 5*time.Millisecond)

	rooms, err := h.handle.ListRooms(ctx)
	require.NoError(t, err)
	assert.Contains(t, rooms, domain.RoomName("lounge"))
	members, ok := h.registry.RoomMembers("lounge")
	require.True(t, ok)
	assert.Empty(t, members)
}

func TestHub_JoinUnknownConnection(t *testing.T) {
	h := startHub(t)
	err := h.handle.JoinRoom(context.Background(), 999, "lounge")
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestHub_BroadcastExcept(t *testing.T) {
	h := startHub(t)
	ctx := context.Background()
	idA, a := h.connect(t)
	_, b := h.connect(t)

	data, err := protocol.Encode(protocol.OutScanEvent, json.RawMessage(`{"state":"done"}`))
	require.NoError(t, err)
	require.NoError(t, h.handle.BroadcastExcept(ctx, idA, data))
	assert.Empty(t, a.OfType(t, protocol.OutScanEvent))
	assert.Len(t, b.OfType(t, protocol.OutScanEvent), 1)

	require.NoError(t, h.handle.Broadcast(ctx, data))
	assert.Len(t, a.OfType(t, protocol.OutScanEvent), 1)
	assert.Len(t, b.OfType(t, protocol.OutScanEvent), 2)

	require.NoError(t, h.handle.Send(ctx, idA, data))
	assert.Len(t, a.OfType(t, protocol.OutScanEvent), 2)
}

func TestHub_AddPlayerAction(t *testing.T) {
	h := startHub(t)
	require.NoError(t, h.handle.AddPlayerAction(5, func(context.Context, domain.UpdateSession) error { return nil }))
	require.Eventually(t, func() bool { return h.actions.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_MessageDecodeError(t *testing.T) {
	h := startHub(t)
	idA, _ := h.connect(t)
	resp, err := h.handle.Message(context.Background(), idA, []byte(`not json`))
	assert.ErrorIs(t, err, orch.ErrMessage)
	assert.ErrorIs(t, err, protocol.ErrInvalidPayload)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHub_ClosedAfterShutdown(t *testing.T) {
	h := startHub(t)
	h.handle.Shutdown()
	<-h.done

	_, err := h.handle.ListRooms(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.handle.Disconnect(1), ErrClosed)
	assert.ErrorIs(t, h.handle.AddPlayerAction(1, nil), ErrClosed)
}

func TestHub_CallHonoursContext(t *testing.T) {
	q := newQueue()
	h := Handle{queue: q, shutdown: func() {}, stopped: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.ListRooms(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.len())
}

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()
	require.True(t, q.push(List{}))
	require.True(t, q.push(Disconnect{ID: 1}))

	c, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "List", c.Kind())
	c, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, "Disconnect", c.Kind())
	_, ok = q.pop()
	assert.False(t, ok)

	require.True(t, q.push(List{}))
	assert.Equal(t, 1, q.close())
	assert.False(t, q.push(List{}))
}
