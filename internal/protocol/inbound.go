// Package protocol defines the JSON messages exchanged with hub clients.
//
// Every message is an envelope {"type": "<Variant>", "payload": ...}.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zonecast/synchub/internal/domain"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrMissingPayload     = errors.New("missing payload")
)

type InboundType string

const (
	InGetConnectionID    InboundType = "GetConnectionId"
	InGetSessions        InboundType = "GetSessions"
	InRegisterConnection InboundType = "RegisterConnection"
	InRegisterPlayers    InboundType = "RegisterPlayers"
	InCreateAudioZone    InboundType = "CreateAudioZone"
	InCreateSession      InboundType = "CreateSession"
	InUpdateSession      InboundType = "UpdateSession"
	InDeleteSession      InboundType = "DeleteSession"
	InPing               InboundType = "Ping"
	InPlaybackAction     InboundType = "PlaybackAction"
	InSetSeek            InboundType = "SetSeek"
)

// InboundPayload is the closed set of client requests.
type InboundPayload interface {
	Type() InboundType
}

type GetConnectionID struct{}
type GetSessions struct{}
type Ping struct{}
type RegisterConnection struct{ Payload domain.RegisterConnection }
type RegisterPlayers struct{ Payload domain.RegisterPlayers }
type CreateAudioZone struct{ Payload domain.CreateAudioZone }
type CreateSession struct{ Payload domain.CreateSession }
type UpdateSession struct{ Payload domain.UpdateSession }
type DeleteSession struct{ Payload domain.DeleteSession }
type PlaybackAction struct{ Payload domain.PlaybackAction }

// SetSeek keeps the raw payload so it can be forwarded untouched.
type SetSeek struct {
	Payload domain.SetSeek
	Raw     json.RawMessage
}

func (GetConnectionID) Type() InboundType    { return InGetConnectionID }
func (GetSessions) Type() InboundType        { return InGetSessions }
func (Ping) Type() InboundType               { return InPing }
func (RegisterConnection) Type() InboundType { return InRegisterConnection }
func (RegisterPlayers) Type() InboundType    { return InRegisterPlayers }
func (CreateAudioZone) Type() InboundType    { return InCreateAudioZone }
func (CreateSession) Type() InboundType      { return InCreateSession }
func (UpdateSession) Type() InboundType      { return InUpdateSession }
func (DeleteSession) Type() InboundType      { return InDeleteSession }
func (PlaybackAction) Type() InboundType     { return InPlaybackAction }
func (SetSeek) Type() InboundType            { return InSetSeek }

type inboundEnvelope struct {
	Type    InboundType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one inbound frame. It never panics on arbitrary input.
func Decode(raw []byte) (InboundPayload, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	var (
		out InboundPayload
		err error
	)
	switch env.Type {
	case InGetConnectionID:
		out = GetConnectionID{}
	case InGetSessions:
		out = GetSessions{}
	case InPing:
		out = Ping{}
	case InRegisterConnection:
		var p RegisterConnection
		err = decodePayload(env, &p.Payload)
		out = p
	case InRegisterPlayers:
		var p RegisterPlayers
		err = decodePayload(env, &p.Payload)
		out = p
	case InCreateAudioZone:
		var p CreateAudioZone
		err = decodePayload(env, &p.Payload)
		out = p
	case InCreateSession:
		var p CreateSession
		err = decodePayload(env, &p.Payload)
		out = p
	case InUpdateSession:
		var p UpdateSession
		err = decodePayload(env, &p.Payload)
		out = p
	case InDeleteSession:
		var p DeleteSession
		err = decodePayload(env, &p.Payload)
		out = p
	case InPlaybackAction:
		var p PlaybackAction
		err = decodePayload(env, &p.Payload)
		out = p
	case InSetSeek:
		p := SetSeek{Raw: env.Payload}
		err = decodePayload(env, &p.Payload)
		out = p
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessageType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMessageType, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodePayload(env inboundEnvelope, dst any) error {
	if len(env.Payload) == 0 || bytes.Equal(bytes.TrimSpace(env.Payload), []byte("null")) {
		return fmt.Errorf("%w: %s", ErrMissingPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, env.Type, err)
	}
	return nil
}
