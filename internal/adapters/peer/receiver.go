package peer

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
)

// LocalRelay delivers to this instance's connections only.
type LocalRelay interface {
	SendLocal(ctx context.Context, id core.ConnID, data string) error
	BroadcastLocal(ctx context.Context, data string) error
	BroadcastExceptLocal(ctx context.Context, id core.ConnID, data string) error
}

// Receiver accepts frames from peer hubs that present Token. With an empty
// Token every peer is refused.
type Receiver struct {
	Relay      LocalRelay
	InstanceID string
	Token      string
	ReadLimit  int64
}

func (rcv *Receiver) authorized(r *http.Request) bool {
	got := r.Header.Get(TokenHeader)
	if rcv.Token == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(rcv.Token)) == 1
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle accepts one peer connection and relays its frames until it closes.
func (rcv *Receiver) Handle(ctx context.Context, c *gin.Context) {
	if !rcv.authorized(c.Request) {
		log.Warn().Str("module", "peer").Str("remote", c.Request.RemoteAddr).Msg("peer rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "peer").Msg("ws upgrade")
		return
	}
	defer ws.Close()
	if rcv.ReadLimit > 0 {
		ws.SetReadLimit(rcv.ReadLimit)
	}
	log.Info().Str("module", "peer").Str("remote", c.Request.RemoteAddr).Msg("peer attached")

	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "peer").Msg("peer read")
			}
			return
		}
		if err := rcv.Deliver(ctx, f); err != nil {
			log.Warn().Err(err).Str("module", "peer").Str("op", string(f.Op)).Msg("relay failed")
		}
	}
}

// Deliver relays one frame to local connections. Frames that originated here are dropped.
func (rcv *Receiver) Deliver(ctx context.Context, f Frame) error {
	if f.Origin != "" && f.Origin == rcv.InstanceID {
		return nil
	}
	switch f.Op {
	case OpSend:
		id, err := core.ParseConnID(f.ConnectionID)
		if err != nil {
			return err
		}
		return rcv.Relay.SendLocal(ctx, id, f.Data)
	case OpSendAll:
		return rcv.Relay.BroadcastLocal(ctx, f.Data)
	case OpSendAllExcept:
		id, err := core.ParseConnID(f.ConnectionID)
		if err != nil {
			return err
		}
		return rcv.Relay.BroadcastExceptLocal(ctx, id, f.Data)
	default:
		log.Warn().Str("module", "peer").Str("op", string(f.Op)).Msg("unknown op")
		return nil
	}
}
