// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxConnectionIDLen   = 64
	MaxConnectionNameLen = 64
)

var (
	ErrConnectionIDEmpty   = errors.New("connection id empty")
	ErrConnectionIDTooLong = errors.New("connection id too long")
	ErrNameEmpty           = errors.New("name empty")
	ErrNameTooLong         = errors.New("name too long")
)

// Connection is a persisted client attachment (a control UI or a player agent).
// Its ID is chosen by the client and is distinct from the transport connection id.
type Connection struct {
	ID      string   `json:"connection_id"`
	Name    string   `json:"name"`
	Created string   `json:"created"`
	Updated string   `json:"updated"`
	Players []Player `json:"players"`
}

type RegisterConnection struct {
	ConnectionID string           `json:"connection_id"`
	Name         string           `json:"name"`
	Players      []RegisterPlayer `json:"players"`
}

func (r RegisterConnection) Validate() error {
	if len(r.ConnectionID) == 0 {
		return ErrConnectionIDEmpty
	}
	if len(r.ConnectionID) > MaxConnectionIDLen {
		return ErrConnectionIDTooLong
	}
	return ValidateName(r.Name)
}

func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxConnectionNameLen {
		return ErrNameTooLong
	}
	return nil
}
