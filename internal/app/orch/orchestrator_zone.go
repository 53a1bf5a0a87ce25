package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

func (o *Orchestrator) CreateAudioZone(ctx context.Context, in domain.CreateAudioZone) (domain.AudioZone, error) {
	if err := domain.ValidateName(in.Name); err != nil {
		return domain.AudioZone{}, err
	}
	zone, err := o.Store.CreateAudioZone(ctx, in)
	if err != nil {
		return domain.AudioZone{}, fmt.Errorf("create audio zone: %w", err)
	}
	log.Info().Str("module", "app.orch").Int64("zone_id", zone.ID).Str("name", zone.Name).Msg("audio zone created")
	return zone, nil
}

// UpdateAudioZone persists the change and broadcasts the zone snapshot to everyone.
func (o *Orchestrator) UpdateAudioZone(ctx context.Context, in domain.UpdateAudioZone) (domain.AudioZone, error) {
	if in.Name != nil {
		if err := domain.ValidateName(*in.Name); err != nil {
			return domain.AudioZone{}, err
		}
	}
	zone, err := o.Store.UpdateAudioZone(ctx, in)
	if err != nil {
		return domain.AudioZone{}, fmt.Errorf("update audio zone: %w", err)
	}
	o.Escalate(o.sendAudioZones(ctx, toAll()))
	return zone, nil
}

func (o *Orchestrator) DeleteAudioZone(ctx context.Context, id int64) error {
	if err := o.Store.DeleteAudioZone(ctx, id); err != nil {
		return fmt.Errorf("delete audio zone: %w", err)
	}
	log.Info().Str("module", "app.orch").Int64("zone_id", id).Msg("audio zone deleted")
	o.Escalate(o.sendAudioZones(ctx, toAll()))
	return nil
}

// BroadcastAudioZones sends the zone snapshot to everyone.
func (o *Orchestrator) BroadcastAudioZones(ctx context.Context) {
	o.Escalate(o.sendAudioZones(ctx, toAll()))
}

func (o *Orchestrator) AudioZones(ctx context.Context) ([]domain.AudioZone, error) {
	zones, err := o.Store.GetAudioZones(ctx)
	if err != nil {
		return nil, wrap(ErrSend, err)
	}
	return zones, nil
}

// AudioZonesWithSessions pairs every zone with the sessions targeting it.
func (o *Orchestrator) AudioZonesWithSessions(ctx context.Context) ([]protocol.ApiAudioZoneWithSession, error) {
	zones, err := o.Store.GetAudioZonesWithSessions(ctx)
	if err != nil {
		return nil, wrap(ErrSend, err)
	}
	return protocol.ToApiAudioZonesWithSession(zones), nil
}

func (o *Orchestrator) sendAudioZones(ctx context.Context, s scope) error {
	zones, err := o.AudioZonesWithSessions(ctx)
	if err != nil {
		return err
	}
	if err := o.deliver(ctx, s, protocol.OutAudioZoneWithSessions, zones); err != nil {
		return wrap(ErrSend, err)
	}
	return nil
}
