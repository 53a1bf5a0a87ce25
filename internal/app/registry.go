package app

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/metrics"
)

const (
	MsgSomeoneConnected    = "Someone connected"
	MsgSomeoneDisconnected = "Someone disconnected"
)

type connEntry struct {
	Signal core.SignalConnection
	Rooms  map[domain.RoomName]struct{}
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Visitors    int `json:"visitors"`
	Rooms       int `json:"rooms"`
}

// Registry owns live connections and room membership.
// Mutations take the write lock; fan-out and queries take the read lock.
// Registry also implements core.WebsocketSender: every send is delivered
// locally and then forwarded to each configured peer. Per-recipient
// failures, local or peer, are swallowed.
type Registry struct {
	mu       sync.RWMutex
	conns    map[core.ConnID]*connEntry
	rooms    map[domain.RoomName]core.RoomService
	visitors int

	liveness *LivenessTable
	peers    []core.WebsocketSender
	metrics  *metrics.Metrics
	newID    func() core.ConnID
}

var _ core.WebsocketSender = (*Registry)(nil)

func NewRegistry(liveness *LivenessTable, m *metrics.Metrics, peers ...core.WebsocketSender) *Registry {
	r := &Registry{
		conns:    make(map[core.ConnID]*connEntry),
		rooms:    make(map[domain.RoomName]core.RoomService),
		liveness: liveness,
		peers:    peers,
		metrics:  m,
		newID:    func() core.ConnID { return core.ConnID(rand.Uint64()) },
	}
	r.rooms[domain.MainRoom] = core.NewRoomService(domain.MainRoom)
	return r
}

// Connect stores the outbound connection under a fresh id and puts it in the main room.
func (r *Registry) Connect(sig core.SignalConnection) core.ConnID {
	id, _ := r.ConnectWith(sig, nil)
	return id
}

// ConnectWith is Connect plus a greeting frame built from the new id and
// queued on sig before the write lock is released, so no other frame can
// reach the connection ahead of it. A greet error still leaves id connected.
func (r *Registry) ConnectWith(sig core.SignalConnection, greet func(core.ConnID) (core.Frame, error)) (core.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken && id != 0 {
			break
		}
		id = r.newID()
	}
	r.conns[id] = &connEntry{
		Signal: sig,
		Rooms:  map[domain.RoomName]struct{}{domain.MainRoom: {}},
	}
	r.rooms[domain.MainRoom].AddMember(id)
	r.visitors++
	r.metrics.SetConnections(len(r.conns))

	log.Info().Str("module", "app.registry").Stringer("conn", id).Int("visitors", r.visitors).Msg("connected")

	if greet == nil {
		return id, nil
	}
	frame, err := greet(id)
	if err != nil {
		return id, err
	}
	r.deliverLocked(id, string(frame))
	return id, nil
}

// Disconnect forgets the connection, empties its rooms and drops its liveness record.
// Members left behind in those rooms are told. Rooms stay registered even when empty.
func (r *Registry) Disconnect(id core.ConnID) bool {
	r.mu.Lock()
	entry, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, id)
	for name := range entry.Rooms {
		if room, ok := r.rooms[name]; ok {
			room.RemoveMember(id)
			r.deliverRoomLocked(room, id, MsgSomeoneDisconnected)
		}
	}
	r.visitors--
	visitors := r.visitors
	r.metrics.SetConnections(len(r.conns))
	r.mu.Unlock()

	if r.liveness != nil {
		r.liveness.Remove(id)
	}
	log.Info().Str("module", "app.registry").Stringer("conn", id).Int("visitors", visitors).Msg("disconnected")
	return true
}

// JoinRoom moves id out of every room it occupies and into name.
// Vacated rooms and the new room are told, never id itself.
func (r *Registry) JoinRoom(id core.ConnID, name domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return false
	}
	for old := range entry.Rooms {
		room, ok := r.rooms[old]
		if !ok {
			continue
		}
		room.RemoveMember(id)
		delete(entry.Rooms, old)
		r.deliverRoomLocked(room, id, MsgSomeoneDisconnected)
	}

	room, ok := r.rooms[name]
	if !ok {
		room = core.NewRoomService(name)
		r.rooms[name] = room
	}
	room.AddMember(id)
	entry.Rooms[name] = struct{}{}
	r.deliverRoomLocked(room, id, MsgSomeoneConnected)

	log.Info().Str("module", "app.registry").Stringer("conn", id).Str("room", string(name)).Msg("joined room")
	return true
}

// SendMessageTo delivers msg to one local connection; failures are swallowed.
func (r *Registry) SendMessageTo(id core.ConnID, msg string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.deliverLocked(id, msg)
}

// SendSystemMessage delivers msg to every member of room except skip.
func (r *Registry) SendSystemMessage(name domain.RoomName, skip core.ConnID, msg string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if room, ok := r.rooms[name]; ok {
		r.deliverRoomLocked(room, skip, msg)
	}
}

func (r *Registry) ListRooms() []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomName, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) RoomMembers(name domain.RoomName) ([]core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	if !ok {
		return nil, false
	}
	return room.Members(), true
}

func (r *Registry) RoomsOf(id core.ConnID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[id]
	if !ok {
		return nil
	}
	out := make([]domain.RoomName, 0, len(entry.Rooms))
	for name := range entry.Rooms {
		out = append(out, name)
	}
	return out
}

func (r *Registry) Has(id core.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) VisitorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visitors
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Connections: len(r.conns), Visitors: r.visitors, Rooms: len(r.rooms)}
}

func (r *Registry) Send(ctx context.Context, id core.ConnID, data string) error {
	r.SendLocal(id, data)
	return r.forward(func(p core.WebsocketSender) error { return p.Send(ctx, id, data) })
}

func (r *Registry) SendAll(ctx context.Context, data string) error {
	r.SendAllLocal(data)
	return r.forward(func(p core.WebsocketSender) error { return p.SendAll(ctx, data) })
}

func (r *Registry) SendAllExcept(ctx context.Context, except core.ConnID, data string) error {
	r.SendAllExceptLocal(except, data)
	return r.forward(func(p core.WebsocketSender) error { return p.SendAllExcept(ctx, except, data) })
}

// SendLocal and friends skip peer forwarding; relayed peer frames use them.
func (r *Registry) SendLocal(id core.ConnID, data string) {
	r.SendMessageTo(id, data)
}

func (r *Registry) SendAllLocal(data string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.conns {
		r.deliverLocked(id, data)
	}
}

func (r *Registry) SendAllExceptLocal(except core.ConnID, data string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.conns {
		if id == except {
			continue
		}
		r.deliverLocked(id, data)
	}
}

// forward hands a frame to every peer. Like a full local receiver, an
// unreachable peer is logged and counted, never reported to the caller.
func (r *Registry) forward(send func(core.WebsocketSender) error) error {
	for _, p := range r.peers {
		if err := send(p); err != nil {
			r.metrics.IncFramesDropped()
			log.Warn().Str("module", "app.registry").Err(err).Msg("peer forward dropped")
		}
	}
	return nil
}

func (r *Registry) deliverRoomLocked(room core.RoomService, skip core.ConnID, msg string) {
	for _, member := range room.Members() {
		if member == skip {
			continue
		}
		r.deliverLocked(member, msg)
	}
}

// deliverLocked must be called with r.mu held.
// A gone or full receiver is left to its own disconnect path.
func (r *Registry) deliverLocked(id core.ConnID, msg string) {
	entry, ok := r.conns[id]
	if !ok {
		r.metrics.IncFramesDropped()
		return
	}
	if err := entry.Signal.TrySend(core.Frame(msg)); err != nil {
		r.metrics.IncFramesDropped()
		log.Debug().Str("module", "app.registry").Stringer("conn", id).Err(err).Msg("send dropped")
		return
	}
	r.metrics.IncFramesSent()
}
