package hub

import (
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

// Command is one request to the dispatch loop. Reply channels are buffered
// so an execution never blocks on a caller that stopped waiting.
type Command interface {
	Kind() string
}

type Connect struct {
	Signal core.SignalConnection
	Reply  chan core.ConnID
}

type Disconnect struct {
	ID core.ConnID
}

type List struct {
	Reply chan []domain.RoomName
}

type Join struct {
	ID    core.ConnID
	Room  domain.RoomName
	Reply chan bool
}

// Send, Broadcast and BroadcastExcept skip peer forwarding when LocalOnly is set.
type Send struct {
	ID        core.ConnID
	Data      string
	LocalOnly bool
	Reply     chan error
}

type Broadcast struct {
	Data      string
	LocalOnly bool
	Reply     chan error
}

type BroadcastExcept struct {
	ID        core.ConnID
	Data      string
	LocalOnly bool
	Reply     chan error
}

type MessageResult struct {
	Response protocol.Response
	Err      error
}

// Message carries one raw inbound frame.
type Message struct {
	ID    core.ConnID
	Raw   []byte
	Reply chan MessageResult
}

type AddPlayerAction struct {
	PlayerID int64
	Action   app.PlayerAction
}

type StatsRequest struct {
	Reply chan app.Stats
}

func (Connect) Kind() string         { return "Connect" }
func (Disconnect) Kind() string      { return "Disconnect" }
func (List) Kind() string            { return "List" }
func (Join) Kind() string            { return "Join" }
func (Send) Kind() string            { return "Send" }
func (Broadcast) Kind() string       { return "Broadcast" }
func (BroadcastExcept) Kind() string { return "BroadcastExcept" }
func (Message) Kind() string         { return "Message" }
func (AddPlayerAction) Kind() string { return "AddPlayerAction" }
func (StatsRequest) Kind() string    { return "Stats" }
