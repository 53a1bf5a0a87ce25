package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
)

const writeWait = 10 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the hub until the socket fails, then
// disconnects id. The hub is the only place a connection is forgotten.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Stringer("conn", id).Msg("readPump closing")
		if err := ctl.Hub.Disconnect(id); err != nil {
			log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Msg("hub disconnect")
		}
		ctl.Limiter.Forget(id)
		cancel()
		c.Close()
	}()

	pongWait := ctl.Opts.PingPeriod * 10 / 9
	if ctl.Opts.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.Opts.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Stringer("conn", id).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Stringer("conn", id).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(ctx, id, data)
		}
	}
}

func (ctl *SignalWSController) handleFrame(ctx context.Context, id core.ConnID, data []byte) {
	if !ctl.Limiter.Allow(id) {
		log.Warn().Str("module", "signal").Stringer("conn", id).Msg("rate limited, frame dropped")
		return
	}
	resp, err := ctl.Hub.Message(ctx, id, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Stringer("conn", id).Int("status", resp.StatusCode).Msg("message rejected")
		return
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("module", "signal").Stringer("conn", id).Int("status", resp.StatusCode).Str("body", resp.Body).Msg("message not ok")
	}
}
