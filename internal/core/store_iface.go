package core

import (
	"context"
	"errors"

	"github.com/zonecast/synchub/internal/domain"
)

// ErrNotFound is returned by Store lookups for a missing row.
var ErrNotFound = errors.New("not found")

type SessionStore interface {
	GetSessions(ctx context.Context) ([]domain.Session, error)
	GetSession(ctx context.Context, id int64) (domain.Session, error)
	CreateSession(ctx context.Context, in domain.CreateSession) (domain.Session, error)
	// UpdateSession merges the non-nil fields of in into the stored session.
	UpdateSession(ctx context.Context, in domain.UpdateSession) error
	DeleteSession(ctx context.Context, id int64) error
	GetSessionPlaylist(ctx context.Context, sessionID int64) (domain.SessionPlaylist, error)
}

type ConnectionStore interface {
	GetConnections(ctx context.Context) ([]domain.Connection, error)
	RegisterConnection(ctx context.Context, in domain.RegisterConnection) (domain.Connection, error)
	CreatePlayer(ctx context.Context, connectionID string, in domain.RegisterPlayer) (domain.Player, error)
}

type AudioZoneStore interface {
	GetAudioZones(ctx context.Context) ([]domain.AudioZone, error)
	GetAudioZone(ctx context.Context, id int64) (domain.AudioZone, error)
	CreateAudioZone(ctx context.Context, in domain.CreateAudioZone) (domain.AudioZone, error)
	UpdateAudioZone(ctx context.Context, in domain.UpdateAudioZone) (domain.AudioZone, error)
	DeleteAudioZone(ctx context.Context, id int64) error
	GetAudioZonePlayers(ctx context.Context, id int64) ([]domain.Player, error)
	GetAudioZonesWithSessions(ctx context.Context) ([]domain.AudioZoneWithSession, error)
}

// Store is the persistence collaborator consumed by the session hub.
type Store interface {
	SessionStore
	ConnectionStore
	AudioZoneStore
}
