package protocol

import "github.com/zonecast/synchub/internal/domain"

// Api* types are the client-facing projections. They are kept separate from
// the persisted shapes so storage changes do not leak onto the wire.

type ApiPlaybackTarget struct {
	Type         string `json:"type"`
	AudioZoneID  int64  `json:"audio_zone_id,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	OutputID     string `json:"output_id,omitempty"`
}

func ToApiPlaybackTarget(t *domain.PlaybackTarget) *ApiPlaybackTarget {
	if t == nil {
		return nil
	}
	return &ApiPlaybackTarget{
		Type:         string(t.Type),
		AudioZoneID:  t.AudioZoneID,
		ConnectionID: t.ConnectionID,
		OutputID:     t.OutputID,
	}
}

type ApiTrack struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type ApiSessionPlaylist struct {
	SessionPlaylistID int64      `json:"session_playlist_id"`
	Tracks            []ApiTrack `json:"tracks"`
}

func ToApiSessionPlaylist(p domain.SessionPlaylist) ApiSessionPlaylist {
	tracks := make([]ApiTrack, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		tracks = append(tracks, ApiTrack{ID: t.ID, Source: t.Source})
	}
	return ApiSessionPlaylist{SessionPlaylistID: p.ID, Tracks: tracks}
}

type ApiSession struct {
	SessionID      int64              `json:"session_id"`
	Name           string             `json:"name"`
	Active         bool               `json:"active"`
	Playing        bool               `json:"playing"`
	Position       *int               `json:"position,omitempty"`
	Seek           *float64           `json:"seek,omitempty"`
	Volume         *float64           `json:"volume,omitempty"`
	PlaybackTarget *ApiPlaybackTarget `json:"playback_target,omitempty"`
	Playlist       ApiSessionPlaylist `json:"playlist"`
	Quality        string             `json:"quality,omitempty"`
}

func ToApiSession(s domain.Session) ApiSession {
	out := ApiSession{
		SessionID:      s.ID,
		Name:           s.Name,
		Active:         s.Active,
		Playing:        s.Playing,
		Position:       s.Position,
		Seek:           s.Seek,
		Volume:         s.Volume,
		PlaybackTarget: ToApiPlaybackTarget(s.PlaybackTarget),
		Playlist:       ToApiSessionPlaylist(s.Playlist),
	}
	if s.Quality != nil {
		out.Quality = s.Quality.Format
	}
	return out
}

func ToApiSessions(in []domain.Session) []ApiSession {
	out := make([]ApiSession, 0, len(in))
	for _, s := range in {
		out = append(out, ToApiSession(s))
	}
	return out
}

// ApiUpdateSession is the SessionUpdated payload. Playlist is set only when
// the update touched it.
type ApiUpdateSession struct {
	SessionID      int64               `json:"session_id"`
	PlaybackTarget *ApiPlaybackTarget  `json:"playback_target,omitempty"`
	Play           *bool               `json:"play,omitempty"`
	Stop           *bool               `json:"stop,omitempty"`
	Name           *string             `json:"name,omitempty"`
	Active         *bool               `json:"active,omitempty"`
	Playing        *bool               `json:"playing,omitempty"`
	Position       *int                `json:"position,omitempty"`
	Seek           *float64            `json:"seek,omitempty"`
	Volume         *float64            `json:"volume,omitempty"`
	Playlist       *ApiSessionPlaylist `json:"playlist,omitempty"`
	Quality        *string             `json:"quality,omitempty"`
}

func ToApiUpdateSession(u domain.UpdateSession, playlist *domain.SessionPlaylist) ApiUpdateSession {
	out := ApiUpdateSession{
		SessionID:      u.SessionID,
		PlaybackTarget: ToApiPlaybackTarget(u.PlaybackTarget),
		Play:           u.Play,
		Stop:           u.Stop,
		Name:           u.Name,
		Active:         u.Active,
		Playing:        u.Playing,
		Position:       u.Position,
		Seek:           u.Seek,
		Volume:         u.Volume,
	}
	if playlist != nil {
		p := ToApiSessionPlaylist(*playlist)
		out.Playlist = &p
	}
	if u.Quality != nil {
		q := u.Quality.Format
		out.Quality = &q
	}
	return out
}

type ApiPlayer struct {
	PlayerID      int64  `json:"player_id"`
	Name          string `json:"name"`
	AudioOutputID string `json:"audio_output_id"`
}

func toApiPlayers(in []domain.Player) []ApiPlayer {
	out := make([]ApiPlayer, 0, len(in))
	for _, p := range in {
		out = append(out, ApiPlayer{PlayerID: p.ID, Name: p.Name, AudioOutputID: p.AudioOutputID})
	}
	return out
}

type ApiConnection struct {
	ConnectionID string      `json:"connection_id"`
	Name         string      `json:"name"`
	Alive        bool        `json:"alive"`
	Players      []ApiPlayer `json:"players"`
}

func ToApiConnection(c domain.Connection, alive bool) ApiConnection {
	return ApiConnection{
		ConnectionID: c.ID,
		Name:         c.Name,
		Alive:        alive,
		Players:      toApiPlayers(c.Players),
	}
}

type ApiAudioZoneWithSession struct {
	ID        int64       `json:"id"`
	SessionID int64       `json:"session_id"`
	Name      string      `json:"name"`
	Players   []ApiPlayer `json:"players"`
}

func ToApiAudioZonesWithSession(in []domain.AudioZoneWithSession) []ApiAudioZoneWithSession {
	out := make([]ApiAudioZoneWithSession, 0, len(in))
	for _, z := range in {
		out = append(out, ApiAudioZoneWithSession{
			ID:        z.ID,
			SessionID: z.SessionID,
			Name:      z.Name,
			Players:   toApiPlayers(z.Players),
		})
	}
	return out
}
