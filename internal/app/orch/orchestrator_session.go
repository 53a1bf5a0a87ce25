package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

// DispatchContext identifies the connection an update came from.
// A nil context means the update originated inside the server.
type DispatchContext struct {
	ConnID  core.ConnID
	Actions *app.PlayerActionTable
}

// Sessions is the full session snapshot.
func (o *Orchestrator) Sessions(ctx context.Context) ([]protocol.ApiSession, error) {
	sessions, err := o.Store.GetSessions(ctx)
	if err != nil {
		return nil, wrap(ErrSend, err)
	}
	return protocol.ToApiSessions(sessions), nil
}

func (o *Orchestrator) sendSessions(ctx context.Context, s scope) error {
	sessions, err := o.Sessions(ctx)
	if err != nil {
		return err
	}
	if err := o.deliver(ctx, s, protocol.OutSessions, sessions); err != nil {
		return wrap(ErrSend, err)
	}
	return nil
}

func (o *Orchestrator) CreateSession(ctx context.Context, in domain.CreateSession) error {
	session, err := o.Store.CreateSession(ctx, in)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("module", "app.orch").Int64("session_id", session.ID).Str("name", session.Name).Msg("session created")
	o.Escalate(o.sendSessions(ctx, toAll()))
	return nil
}

func (o *Orchestrator) DeleteSession(ctx context.Context, in domain.DeleteSession) error {
	if err := o.Store.DeleteSession(ctx, in.SessionID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrNoSessionFound, in.SessionID)
		}
		return fmt.Errorf("delete session: %w", err)
	}
	log.Info().Str("module", "app.orch").Int64("session_id", in.SessionID).Msg("session deleted")
	o.Escalate(o.sendSessions(ctx, toAll()))
	return nil
}

// UpdateSession merges update into the stored session, runs player actions
// when playback changed, then broadcasts SessionUpdated. With a dispatch
// context the originating connection is skipped.
func (o *Orchestrator) UpdateSession(ctx context.Context, dc *DispatchContext, update domain.UpdateSession) error {
	if err := o.Store.UpdateSession(ctx, update); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return wrap(ErrUpdateSession, fmt.Errorf("%w: %d", ErrNoSessionFound, update.SessionID))
		}
		return wrap(ErrUpdateSession, err)
	}

	if update.PlaybackUpdated() && dc != nil && dc.Actions != nil {
		if err := o.runPlayerActions(ctx, dc.Actions, update); err != nil {
			return wrap(ErrUpdateSession, err)
		}
	}

	var playlist *domain.SessionPlaylist
	if update.Playlist != nil {
		p, err := o.Store.GetSessionPlaylist(ctx, update.SessionID)
		if err != nil {
			return wrap(ErrUpdateSession, err)
		}
		playlist = &p
	}

	target := toAll()
	if dc != nil {
		target = toAllExcept(dc.ConnID)
	}
	err := o.deliver(ctx, target, protocol.OutSessionUpdated, protocol.ToApiUpdateSession(update, playlist))
	if err != nil {
		o.Escalate(wrap(ErrSend, err))
	}
	return nil
}

// runPlayerActions calls, one after another, the action of every player in
// the session's target zone.
func (o *Orchestrator) runPlayerActions(ctx context.Context, actions *app.PlayerActionTable, update domain.UpdateSession) error {
	session, err := o.Store.GetSession(ctx, update.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrNoSessionFound, update.SessionID)
		}
		return err
	}
	zoneID, ok := session.PlaybackTarget.ZoneID()
	if !ok {
		return nil
	}
	players, err := o.Store.GetAudioZonePlayers(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("zone players: %w", err)
	}
	for _, p := range players {
		action, ok := actions.Get(p.ID)
		if !ok {
			continue
		}
		if err := action(ctx, update); err != nil {
			log.Warn().Str("module", "app.orch").Int64("player_id", p.ID).Int64("session_id", update.SessionID).Err(err).Msg("player action failed")
		}
	}
	return nil
}
