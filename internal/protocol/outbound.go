package protocol

import (
	"encoding/json"
	"net/http"
)

type OutboundType string

const (
	OutConnectionID          OutboundType = "ConnectionId"
	OutConnections           OutboundType = "Connections"
	OutSessions              OutboundType = "Sessions"
	OutSessionUpdated        OutboundType = "SessionUpdated"
	OutAudioZoneWithSessions OutboundType = "AudioZoneWithSessions"
	OutDownloadEvent         OutboundType = "DownloadEvent"
	OutScanEvent             OutboundType = "ScanEvent"
	OutSetSeek               OutboundType = "SetSeek"
)

type Outbound struct {
	Type    OutboundType `json:"type"`
	Payload any          `json:"payload"`
}

type ConnectionIDPayload struct {
	ConnectionID string `json:"connection_id"`
}

// Encode wraps payload in an outbound envelope.
func Encode(t OutboundType, payload any) (string, error) {
	b, err := json.Marshal(Outbound{Type: t, Payload: payload})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Response acknowledges one inbound frame to its sender.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

func Success() Response {
	return Response{StatusCode: http.StatusOK, Body: "Success"}
}

func Failure(status int, err error) Response {
	return Response{StatusCode: status, Body: err.Error()}
}
