package domain

// Player is an addressable playback endpoint owned by a connection.
type Player struct {
	ID            int64  `json:"player_id"`
	ConnectionID  string `json:"connection_id"`
	Name          string `json:"name"`
	AudioOutputID string `json:"audio_output_id"`
	Created       string `json:"created"`
	Updated       string `json:"updated"`
}

type RegisterPlayer struct {
	AudioOutputID string `json:"audio_output_id"`
	Name          string `json:"name"`
}

type RegisterPlayers struct {
	ConnectionID string           `json:"connection_id"`
	Players      []RegisterPlayer `json:"players"`
}
