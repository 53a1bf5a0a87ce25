package orch

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

// HandleMessage decodes one inbound frame from id and runs its handler.
// The response acknowledges the frame to its sender; broadcasts are separate.
func (o *Orchestrator) HandleMessage(ctx context.Context, id core.ConnID, raw []byte) (protocol.Response, error) {
	payload, err := protocol.Decode(raw)
	if err != nil {
		log.Debug().Str("module", "app.orch").Stringer("conn", id).Err(err).Msg("decode failed")
		return protocol.Failure(http.StatusBadRequest, err), wrap(ErrMessage, err)
	}

	if err := o.dispatch(ctx, id, payload); err != nil {
		log.Warn().Str("module", "app.orch").Stringer("conn", id).Str("type", string(payload.Type())).Err(err).Msg("handler failed")
		return protocol.Failure(StatusFor(err), err), wrap(ErrMessage, err)
	}
	return protocol.Success(), nil
}

// StatusFor maps an orchestrator error to the HTTP status reported back.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoSessionFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConnectionIDEmpty),
		errors.Is(err, domain.ErrConnectionIDTooLong),
		errors.Is(err, domain.ErrNameEmpty),
		errors.Is(err, domain.ErrNameTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, id core.ConnID, payload protocol.InboundPayload) error {
	switch p := payload.(type) {
	case protocol.GetConnectionID:
		return o.SendConnectionID(ctx, id)
	case protocol.GetSessions:
		return o.sendSessions(ctx, toConn(id))
	case protocol.RegisterConnection:
		return o.RegisterConnection(ctx, id, p.Payload)
	case protocol.RegisterPlayers:
		return o.RegisterPlayers(ctx, p.Payload)
	case protocol.CreateAudioZone:
		if _, err := o.CreateAudioZone(ctx, p.Payload); err != nil {
			return err
		}
		o.Escalate(o.sendSessions(ctx, toAllExcept(id)))
		return nil
	case protocol.CreateSession:
		return o.CreateSession(ctx, p.Payload)
	case protocol.UpdateSession:
		return o.UpdateSession(ctx, &DispatchContext{ConnID: id, Actions: o.Actions}, p.Payload)
	case protocol.DeleteSession:
		return o.DeleteSession(ctx, p.Payload)
	case protocol.SetSeek:
		if err := o.deliver(ctx, toAllExcept(id), protocol.OutSetSeek, p.Raw); err != nil {
			o.Escalate(wrap(ErrSend, err))
		}
		return nil
	case protocol.Ping:
		log.Trace().Str("module", "app.orch").Stringer("conn", id).Msg("ping")
		return nil
	case protocol.PlaybackAction:
		log.Debug().Str("module", "app.orch").Stringer("conn", id).Str("action", p.Payload.Action).Msg("playback action")
		return nil
	default:
		return protocol.ErrInvalidMessageType
	}
}
