package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

// Greeting builds the connection id handshake for a freshly connected client.
func (o *Orchestrator) Greeting(id core.ConnID) (core.Frame, error) {
	data, err := protocol.Encode(protocol.OutConnectionID, protocol.ConnectionIDPayload{ConnectionID: id.String()})
	if err != nil {
		return nil, wrap(ErrConnect, err)
	}
	return core.Frame(data), nil
}

// OnDisconnect re-broadcasts the connection snapshot after id has left.
func (o *Orchestrator) OnDisconnect(ctx context.Context, id core.ConnID) {
	if err := o.sendConnections(ctx, toAll()); err != nil {
		o.Escalate(wrap(ErrDisconnect, err))
		return
	}
	log.Debug().Str("module", "app.orch").Stringer("conn", id).Msg("disconnect broadcast")
}

func (o *Orchestrator) SendConnectionID(ctx context.Context, id core.ConnID) error {
	return o.deliver(ctx, toConn(id), protocol.OutConnectionID, protocol.ConnectionIDPayload{ConnectionID: id.String()})
}

// RegisterConnection upserts the client connection, records id as alive and
// broadcasts the connection snapshot to everyone.
func (o *Orchestrator) RegisterConnection(ctx context.Context, id core.ConnID, in domain.RegisterConnection) error {
	if err := in.Validate(); err != nil {
		return err
	}
	conn, err := o.Store.RegisterConnection(ctx, in)
	if err != nil {
		return fmt.Errorf("register connection: %w", err)
	}
	if o.Liveness != nil {
		o.Liveness.Put(id, conn)
	}
	log.Info().Str("module", "app.orch").Stringer("conn", id).Str("connection_id", conn.ID).Int("players", len(conn.Players)).Msg("connection registered")

	o.Escalate(o.sendConnections(ctx, toAll()))
	return nil
}

func (o *Orchestrator) RegisterPlayers(ctx context.Context, in domain.RegisterPlayers) error {
	for _, p := range in.Players {
		player, err := o.Store.CreatePlayer(ctx, in.ConnectionID, p)
		if err != nil {
			return fmt.Errorf("create player: %w", err)
		}
		log.Info().Str("module", "app.orch").Str("connection_id", in.ConnectionID).Int64("player_id", player.ID).Msg("player registered")
	}
	o.Escalate(o.sendConnections(ctx, toAll()))
	return nil
}

// Connections is the connection snapshot annotated with liveness.
func (o *Orchestrator) Connections(ctx context.Context) ([]protocol.ApiConnection, error) {
	conns, err := o.Store.GetConnections(ctx)
	if err != nil {
		return nil, wrap(ErrSend, err)
	}
	out := make([]protocol.ApiConnection, 0, len(conns))
	for _, c := range conns {
		alive := o.Liveness != nil && o.Liveness.IsAlive(c.ID)
		out = append(out, protocol.ToApiConnection(c, alive))
	}
	return out, nil
}

func (o *Orchestrator) sendConnections(ctx context.Context, s scope) error {
	conns, err := o.Connections(ctx)
	if err != nil {
		return err
	}
	if err := o.deliver(ctx, s, protocol.OutConnections, conns); err != nil {
		return wrap(ErrSend, err)
	}
	return nil
}
