/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
)

// wsConn adapts a websocket connection to the listener hub.
type wsConn struct {
	conn *ws.Conn
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, ws.MessageText, data)
}

func (c *wsConn) Close(reason string) {
	_ = c.conn.Close(ws.StatusNormalClosure, reason)
}

// listenerFrame covers every inbound message shape. Unknown types and
// malformed frames are dropped without closing the connection.
type listenerFrame struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
	Username string  `json:"username"`
	Message  string  `json:"message"`
}

// handleListenerWS upgrades the connection, registers it with the station,
// and relays inbound position and chat frames until the client goes away.
func (a *API) handleListenerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	id := a.station.Connect(&wsConn{conn: conn})
	defer a.station.Disconnect(id)

	a.logger.Debug().Str("listener_id", id).Msg("listener connected")

	ctx := r.Context()
	done := make(chan struct{})
	frames := make(chan listenerFrame, 16)

	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ws.CloseStatus(err) == ws.StatusNormalClosure {
					return
				}
				a.logger.Debug().Err(err).Str("listener_id", id).Msg("websocket read error")
				return
			}

			var frame listenerFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}

			select {
			case frames <- frame:
			default:
				a.logger.Warn().Str("listener_id", id).Msg("frame channel full, dropping message")
			}
		}
	}()

	pingTicker := time.NewTicker(15 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-done:
			return
		case frame := <-frames:
			switch frame.Type {
			case "position_update":
				a.station.ReportPosition(frame.Position)
			case "chat":
				if _, err := a.chat.Post(ctx, frame.Username, frame.Message); err != nil {
					a.logger.Debug().Err(err).Str("listener_id", id).Msg("chat frame rejected")
				}
			default:
				// Unknown frame types are ignored
			}
		case <-pingTicker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				a.logger.Debug().Err(err).Str("listener_id", id).Msg("ping failed")
				return
			}
		}
	}
}
