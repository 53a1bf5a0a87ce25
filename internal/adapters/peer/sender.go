package peer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 3 * time.Second
)

// TokenHeader carries the shared peer secret on the upgrade request.
const TokenHeader = "X-Synchub-Peer-Token"

// Sender implements core.WebsocketSender for one downstream peer hub.
// It dials lazily and redials once when a write fails. Each dial is bounded
// by DialTimeout so a dead peer cannot stall broadcasts for long.
type Sender struct {
	URL         string
	Origin      string
	Token       string
	Dialer      *websocket.Dialer
	DialTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ core.WebsocketSender = (*Sender)(nil)

func NewSender(url, origin, token string) *Sender {
	return &Sender{
		URL:         url,
		Origin:      origin,
		Token:       token,
		Dialer:      &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: dialTimeout},
		DialTimeout: dialTimeout,
	}
}

func (s *Sender) Send(ctx context.Context, id core.ConnID, data string) error {
	return s.write(ctx, Frame{Op: OpSend, ConnectionID: id.String(), Data: data, Origin: s.Origin})
}

func (s *Sender) SendAll(ctx context.Context, data string) error {
	return s.write(ctx, Frame{Op: OpSendAll, Data: data, Origin: s.Origin})
}

func (s *Sender) SendAllExcept(ctx context.Context, except core.ConnID, data string) error {
	return s.write(ctx, Frame{Op: OpSendAllExcept, ConnectionID: except.String(), Data: data, Origin: s.Origin})
}

func (s *Sender) write(ctx context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if s.conn == nil {
			if s.conn, err = s.dial(ctx); err != nil {
				continue
			}
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err = s.conn.WriteJSON(f); err == nil {
			return nil
		}
		log.Warn().Err(err).Str("module", "peer").Str("url", s.URL).Msg("write failed, redialing")
		_ = s.conn.Close()
		s.conn = nil
	}
	return fmt.Errorf("peer %s: %w", s.URL, err)
}

func (s *Sender) dial(ctx context.Context) (*websocket.Conn, error) {
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = dialTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	header := http.Header{}
	if s.Token != "" {
		header.Set(TokenHeader, s.Token)
	}
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return nil, err
	}
	// Peers never write back; drain control frames so pings get answered.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	log.Info().Str("module", "peer").Str("url", s.URL).Msg("peer connected")
	return conn, nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
