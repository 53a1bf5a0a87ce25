// Package peer forwards hub broadcasts to other hub instances over WebSocket.
package peer

type Op string

const (
	OpSend          Op = "send"
	OpSendAll       Op = "send_all"
	OpSendAllExcept Op = "send_all_except"
)

// Frame is one relayed send. Origin is the instance id of the sender so a
// hub never re-delivers its own frames.
type Frame struct {
	Op           Op     `json:"op"`
	ConnectionID string `json:"connection_id,omitempty"`
	Data         string `json:"data"`
	Origin       string `json:"origin"`
}
