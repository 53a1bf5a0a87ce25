package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
)

var ErrClosed = errors.New("connection closed")

// Hub is the part of the session hub the transport talks to.
type Hub interface {
	Connect(ctx context.Context, sig core.SignalConnection) (core.ConnID, error)
	Disconnect(id core.ConnID) error
	JoinRoom(ctx context.Context, id core.ConnID, room domain.RoomName) error
	Message(ctx context.Context, id core.ConnID, raw []byte) (protocol.Response, error)
}

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	RateLimit    int
	RateInterval time.Duration
	SendBuffer   int
}

type SignalWSController struct {
	Hub     Hub
	Opts    Options
	Limiter *RateLimiter
}

func NewSignalWSController(hub Hub, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &SignalWSController{
		Hub:     hub,
		Opts:    opts,
		Limiter: NewRateLimiter(opts.RateLimit, opts.RateInterval),
	}
}

// WsSignalConn is the outbound side of one client socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and attaches the socket to the hub.
// An optional ?room= query joins that room right after connecting.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Opts.SendBuffer),
	}

	// The write pump must run before Connect so the handshake frame has a reader.
	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)

	id, err := ctl.Hub.Connect(ctx, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("hub connect")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Stringer("conn", id).Str("token", token).Msg("new WS connection")

	if room := c.Query("room"); room != "" {
		ctl.joinRoom(ctx, id, domain.RoomName(room))
	}

	go ctl.readPump(ctx, cancel, id, conn)
}
