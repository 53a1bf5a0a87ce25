package signal

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
)

const maxRoomNameLen = 36

func (ctl *SignalWSController) joinRoom(ctx context.Context, id core.ConnID, room domain.RoomName) {
	if len(room) > maxRoomNameLen {
		room = room[:maxRoomNameLen]
	}
	if err := ctl.Hub.JoinRoom(ctx, id, room); err != nil {
		log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Str("room", string(room)).Msg("join room")
		return
	}
	log.Info().Str("module", "signal").Stringer("conn", id).Str("room", string(room)).Msg("join")
}
