package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/metrics"
	"github.com/zonecast/synchub/internal/protocol"
)

// Orchestrator runs the session hub's business logic: it persists client
// requests through Store and fans the resulting snapshots out through Sender.
type Orchestrator struct {
	Store    core.Store
	Sender   core.WebsocketSender
	Liveness *app.LivenessTable
	Actions  *app.PlayerActionTable
	Policy   app.Policy
	Metrics  *metrics.Metrics

	// Abort is called when Policy escalates a broadcast failure to Abort.
	// Nil means log at fatal level, which exits the process.
	Abort func(err error)
}

type scopeKind int

const (
	scopeConn scopeKind = iota
	scopeAll
	scopeAllExcept
)

// scope selects which connections receive a broadcast.
type scope struct {
	kind scopeKind
	conn core.ConnID
}

func toConn(id core.ConnID) scope      { return scope{kind: scopeConn, conn: id} }
func toAll() scope                     { return scope{kind: scopeAll} }
func toAllExcept(id core.ConnID) scope { return scope{kind: scopeAllExcept, conn: id} }

func (o *Orchestrator) deliver(ctx context.Context, s scope, t protocol.OutboundType, payload any) error {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	switch s.kind {
	case scopeConn:
		return o.Sender.Send(ctx, s.conn, data)
	case scopeAllExcept:
		return o.Sender.SendAllExcept(ctx, s.conn, data)
	default:
		return o.Sender.SendAll(ctx, data)
	}
}

// Escalate applies the broadcast failure policy to err.
func (o *Orchestrator) Escalate(err error) {
	if err == nil {
		return
	}
	o.Metrics.IncBroadcastErrors()

	action := app.LogAndContinue
	if o.Policy != nil {
		action = o.Policy.OnBroadcastError(err)
	}
	if action == app.Abort {
		if o.Abort != nil {
			o.Abort(err)
			return
		}
		log.Fatal().Str("module", "app.orch").Err(err).Msg("broadcast failed")
	}
	log.Error().Str("module", "app.orch").Err(err).Stringer("action", action).Msg("broadcast failed")
}
