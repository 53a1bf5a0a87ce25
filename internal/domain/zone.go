package domain

type AudioZone struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// AudioZoneWithSession pairs a zone with a session currently targeting it.
type AudioZoneWithSession struct {
	ID        int64    `json:"id"`
	SessionID int64    `json:"session_id"`
	Name      string   `json:"name"`
	Players   []Player `json:"players"`
}

type CreateAudioZone struct {
	Name    string  `json:"name"`
	Players []int64 `json:"players,omitempty"`
}

// UpdateAudioZone replaces the zone's player set when Players is non-nil.
type UpdateAudioZone struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name,omitempty"`
	Players []int64 `json:"players,omitempty"`
}
