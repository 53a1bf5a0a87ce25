package hub

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/metrics"
)

// Server drains the command queue. Every dequeued command runs in its own
// goroutine against the shared registry, so completion order is not
// enqueue order.
type Server struct {
	Registry *app.Registry
	Orch     *orch.Orchestrator
	Actions  *app.PlayerActionTable
	Metrics  *metrics.Metrics

	queue    *queue
	inflight conc.WaitGroup

	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
}

func NewServer(registry *app.Registry, o *orch.Orchestrator, actions *app.PlayerActionTable, m *metrics.Metrics) (*Server, Handle) {
	s := &Server{
		Registry: registry,
		Orch:     o,
		Actions:  actions,
		Metrics:  m,
		queue:    newQueue(),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	return s, Handle{queue: s.queue, shutdown: s.Shutdown, stopped: s.stopped}
}

// Run dispatches commands until ctx is done or Shutdown is called.
// It does not wait for in-flight commands; see Wait.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Str("module", "app.hub").Msg("dispatch loop started")
	defer func() {
		dropped := s.queue.close()
		close(s.stopped)
		log.Info().Str("module", "app.hub").Int("dropped", dropped).Msg("dispatch loop stopped")
	}()

	execCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-s.queue.ready:
		}

		for !s.stopping(ctx) {
			cmd, ok := s.queue.pop()
			if !ok {
				break
			}
			s.Metrics.IncCommand(cmd.Kind())
			s.inflight.Go(func() { s.execute(execCtx, cmd) })
		}
	}
}

// Shutdown stops intake. It does not wait for in-flight commands.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Wait blocks until every spawned command has finished.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Server) execute(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case Connect:
		id, err := s.Registry.ConnectWith(c.Signal, s.Orch.Greeting)
		if err != nil {
			log.Error().Str("module", "app.hub").Stringer("conn", id).Err(err).Msg("connect handshake failed")
		}
		c.Reply <- id
	case Disconnect:
		if s.Registry.Disconnect(c.ID) {
			s.Orch.OnDisconnect(ctx, c.ID)
		}
	case List:
		c.Reply <- s.Registry.ListRooms()
	case Join:
		c.Reply <- s.Registry.JoinRoom(c.ID, c.Room)
	case Send:
		if c.LocalOnly {
			s.Registry.SendLocal(c.ID, c.Data)
			c.Reply <- nil
			return
		}
		c.Reply <- s.Registry.Send(ctx, c.ID, c.Data)
	case Broadcast:
		if c.LocalOnly {
			s.Registry.SendAllLocal(c.Data)
			c.Reply <- nil
			return
		}
		c.Reply <- s.Registry.SendAll(ctx, c.Data)
	case BroadcastExcept:
		if c.LocalOnly {
			s.Registry.SendAllExceptLocal(c.ID, c.Data)
			c.Reply <- nil
			return
		}
		c.Reply <- s.Registry.SendAllExcept(ctx, c.ID, c.Data)
	case Message:
		resp, err := s.Orch.HandleMessage(ctx, c.ID, c.Raw)
		c.Reply <- MessageResult{Response: resp, Err: err}
	case AddPlayerAction:
		s.Actions.Add(c.PlayerID, c.Action)
		log.Info().Str("module", "app.hub").Int64("player_id", c.PlayerID).Msg("player action registered")
	case StatsRequest:
		c.Reply <- s.Registry.Stats()
	default:
		log.Error().Str("module", "app.hub").Str("kind", cmd.Kind()).Msg("unknown command")
	}
}
