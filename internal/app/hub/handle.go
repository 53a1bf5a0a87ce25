package hub

import (
	"context"
	"errors"

	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

var (
	ErrClosed            = errors.New("hub closed")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Handle is the thread-safe facade over the dispatch loop. It is a small
// value; copies share the same queue.
type Handle struct {
	queue    *queue
	shutdown func()
	stopped  <-chan struct{}
}

// call enqueues cmd and waits for its reply. A reply that raced with
// shutdown still wins.
func call[T any](ctx context.Context, h Handle, cmd Command, reply chan T) (T, error) {
	var zero T
	if !h.queue.push(cmd) {
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.stopped:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

func (h Handle) Connect(ctx context.Context, sig core.SignalConnection) (core.ConnID, error) {
	reply := make(chan core.ConnID, 1)
	return call(ctx, h, Connect{Signal: sig, Reply: reply}, reply)
}

// Disconnect does not wait for the registry to forget id.
func (h Handle) Disconnect(id core.ConnID) error {
	if !h.queue.push(Disconnect{ID: id}) {
		return ErrClosed
	}
	return nil
}

func (h Handle) ListRooms(ctx context.Context) ([]domain.RoomName, error) {
	reply := make(chan []domain.RoomName, 1)
	return call(ctx, h, List{Reply: reply}, reply)
}

func (h Handle) JoinRoom(ctx context.Context, id core.ConnID, room domain.RoomName) error {
	reply := make(chan bool, 1)
	ok, err := call(ctx, h, Join{ID: id, Room: room, Reply: reply}, reply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownConnection
	}
	return nil
}

func (h Handle) Send(ctx context.Context, id core.ConnID, data string) error {
	return h.send(ctx, id, data, false)
}

func (h Handle) SendLocal(ctx context.Context, id core.ConnID, data string) error {
	return h.send(ctx, id, data, true)
}

func (h Handle) send(ctx context.Context, id core.ConnID, data string, local bool) error {
	reply := make(chan error, 1)
	err, callErr := call(ctx, h, Send{ID: id, Data: data, LocalOnly: local, Reply: reply}, reply)
	return errors.Join(callErr, err)
}

func (h Handle) Broadcast(ctx context.Context, data string) error {
	return h.broadcast(ctx, data, false)
}

func (h Handle) BroadcastLocal(ctx context.Context, data string) error {
	return h.broadcast(ctx, data, true)
}

func (h Handle) broadcast(ctx context.Context, data string, local bool) error {
	reply := make(chan error, 1)
	err, callErr := call(ctx, h, Broadcast{Data: data, LocalOnly: local, Reply: reply}, reply)
	return errors.Join(callErr, err)
}

func (h Handle) BroadcastExcept(ctx context.Context, id core.ConnID, data string) error {
	return h.broadcastExcept(ctx, id, data, false)
}

func (h Handle) BroadcastExceptLocal(ctx context.Context, id core.ConnID, data string) error {
	return h.broadcastExcept(ctx, id, data, true)
}

func (h Handle) broadcastExcept(ctx context.Context, id core.ConnID, data string, local bool) error {
	reply := make(chan error, 1)
	err, callErr := call(ctx, h, BroadcastExcept{ID: id, Data: data, LocalOnly: local, Reply: reply}, reply)
	return errors.Join(callErr, err)
}

// Message hands one inbound frame to the protocol router.
func (h Handle) Message(ctx context.Context, id core.ConnID, raw []byte) (protocol.Response, error) {
	reply := make(chan MessageResult, 1)
	res, err := call(ctx, h, Message{ID: id, Raw: raw, Reply: reply}, reply)
	if err != nil {
		return protocol.Response{}, err
	}
	return res.Response, res.Err
}

func (h Handle) AddPlayerAction(playerID int64, action app.PlayerAction) error {
	if !h.queue.push(AddPlayerAction{PlayerID: playerID, Action: action}) {
		return ErrClosed
	}
	return nil
}

func (h Handle) Stats(ctx context.Context) (app.Stats, error) {
	reply := make(chan app.Stats, 1)
	return call(ctx, h, StatsRequest{Reply: reply}, reply)
}

// Shutdown stops the dispatch loop from taking new commands.
func (h Handle) Shutdown() {
	h.shutdown()
}
