package domain

type PlaybackTargetType string

const (
	TargetAudioZone        PlaybackTargetType = "AudioZone"
	TargetConnectionOutput PlaybackTargetType = "ConnectionOutput"
)

type PlaybackTarget struct {
	Type         PlaybackTargetType `json:"type"`
	AudioZoneID  int64              `json:"audio_zone_id,omitempty"`
	ConnectionID string             `json:"connection_id,omitempty"`
	OutputID     string             `json:"output_id,omitempty"`
}

// ZoneID reports the referenced audio zone, if the target is one.
func (t *PlaybackTarget) ZoneID() (int64, bool) {
	if t == nil || t.Type != TargetAudioZone {
		return 0, false
	}
	return t.AudioZoneID, true
}

type PlaybackQuality struct {
	Format string `json:"format"`
}

type PlaylistTrack struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type SessionPlaylist struct {
	ID     int64           `json:"session_playlist_id"`
	Tracks []PlaylistTrack `json:"tracks"`
}

// Session is the persisted playback state of one "now playing" context.
type Session struct {
	ID             int64            `json:"session_id"`
	Name           string           `json:"name"`
	Active         bool             `json:"active"`
	Playing        bool             `json:"playing"`
	Position       *int             `json:"position,omitempty"`
	Seek           *float64         `json:"seek,omitempty"`
	Volume         *float64         `json:"volume,omitempty"`
	PlaybackTarget *PlaybackTarget  `json:"playback_target,omitempty"`
	Playlist       SessionPlaylist  `json:"playlist"`
	Quality        *PlaybackQuality `json:"quality,omitempty"`
}

type CreateSessionPlaylist struct {
	Tracks []PlaylistTrack `json:"tracks"`
}

type CreateSession struct {
	Name           string                `json:"name"`
	PlaybackTarget *PlaybackTarget       `json:"playback_target,omitempty"`
	Playlist       CreateSessionPlaylist `json:"playlist"`
}

type UpdateSessionPlaylist struct {
	SessionPlaylistID int64           `json:"session_playlist_id"`
	Tracks            []PlaylistTrack `json:"tracks"`
}

// UpdateSession is a partial update: nil fields leave the stored value unchanged.
// Play and Stop are transport controls and are never persisted.
type UpdateSession struct {
	SessionID      int64                  `json:"session_id"`
	PlaybackTarget *PlaybackTarget        `json:"playback_target,omitempty"`
	Play           *bool                  `json:"play,omitempty"`
	Stop           *bool                  `json:"stop,omitempty"`
	Name           *string                `json:"name,omitempty"`
	Active         *bool                  `json:"active,omitempty"`
	Playing        *bool                  `json:"playing,omitempty"`
	Position       *int                   `json:"position,omitempty"`
	Seek           *float64               `json:"seek,omitempty"`
	Volume         *float64               `json:"volume,omitempty"`
	Playlist       *UpdateSessionPlaylist `json:"playlist,omitempty"`
	Quality        *PlaybackQuality       `json:"quality,omitempty"`
}

// PlaybackUpdated reports whether the update changes what a player should be doing.
// Name and target changes alone do not.
func (u UpdateSession) PlaybackUpdated() bool {
	return u.Play != nil ||
		u.Stop != nil ||
		u.Active != nil ||
		u.Playing != nil ||
		u.Position != nil ||
		u.Seek != nil ||
		u.Volume != nil ||
		u.Playlist != nil ||
		u.Quality != nil
}

type DeleteSession struct {
	SessionID int64 `json:"session_id"`
}

type SetSeek struct {
	SessionID      int64           `json:"session_id"`
	PlaybackTarget *PlaybackTarget `json:"playback_target,omitempty"`
	Seek           float64         `json:"seek"`
}

type PlaybackAction struct {
	Action         string          `json:"action"`
	PlaybackTarget *PlaybackTarget `json:"playback_target,omitempty"`
}
