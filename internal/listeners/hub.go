/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package listeners tracks live websocket connections and fans broadcasts
// out to them. Failed sends unregister the connection so one dead listener
// never wedges the rest.
package listeners

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/telemetry"
)

// Conn is a single listener connection. The websocket handler adapts the
// underlying connection to this interface.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close(reason string)
}

// Hub owns the set of live listener connections.
type Hub struct {
	mu          sync.Mutex
	conns       map[string]Conn
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:       make(map[string]Conn),
		sendTimeout: time.Second,
		logger:      logger.With().Str("component", "listener-hub").Logger(),
	}
}

// Register adds a connection and returns its assigned id.
func (h *Hub) Register(conn Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.conns[id] = conn
	count := len(h.conns)
	h.mu.Unlock()

	telemetry.ListenersConnected.Set(float64(count))
	h.logger.Debug().Str("listener_id", id).Int("listeners", count).Msg("listener registered")
	return id
}

// Unregister removes a connection. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	count := len(h.conns)
	h.mu.Unlock()

	if ok {
		telemetry.ListenersConnected.Set(float64(count))
		h.logger.Debug().Str("listener_id", id).Int("listeners", count).Msg("listener unregistered")
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Snapshot returns the ids of all registered connections.
func (h *Hub) Snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

type member struct {
	id   string
	conn Conn
}

// Broadcast marshals payload and sends it to every registered connection.
// Sends run against a copy of the membership so registration is never held
// up by slow listeners. Connections whose send fails are unregistered and
// closed in a second pass; failures never surface to the caller.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("broadcast payload marshal failed")
		return
	}

	h.mu.Lock()
	members := make([]member, 0, len(h.conns))
	for id, conn := range h.conns {
		members = append(members, member{id: id, conn: conn})
	}
	h.mu.Unlock()

	var failed []member
	for _, m := range members {
		ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
		err := m.conn.Send(ctx, data)
		cancel()
		if err != nil {
			failed = append(failed, m)
			telemetry.BroadcastFailures.Inc()
			h.logger.Debug().Err(err).Str("listener_id", m.id).Msg("listener send failed")
		}
	}

	for _, m := range failed {
		h.Unregister(m.id)
		m.conn.Close("send failed")
	}
}
