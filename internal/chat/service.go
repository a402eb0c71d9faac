/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package chat persists listener chat and serves recent history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/telemetry"
)

// DefaultHistoryLimit caps the recent-messages list.
const DefaultHistoryLimit = 50

// ErrEmptyMessage rejects posts without a username or message body.
var ErrEmptyMessage = errors.New("username and message required")

// MessageView is the wire shape of a chat message.
type MessageView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// View converts a stored message to its wire shape.
func View(m models.ChatMessage) MessageView {
	return MessageView{
		ID:        m.ID,
		Username:  m.Username,
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}
}

// Service persists chat messages and serves history with a cache-aside
// layer in front of the database.
type Service struct {
	db     *gorm.DB
	cache  *Cache
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a chat service. cache may be nil.
func NewService(db *gorm.DB, cache *Cache, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		bus:    bus,
		logger: logger.With().Str("component", "chat").Logger(),
	}
}

// Post validates and persists a message, invalidates the history cache, and
// publishes it on the bus for websocket fan-out.
func (s *Service) Post(ctx context.Context, username, message string) (*models.ChatMessage, error) {
	username = strings.TrimSpace(username)
	message = strings.TrimSpace(message)
	if username == "" || message == "" {
		return nil, ErrEmptyMessage
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	telemetry.ChatMessagesTotal.Inc()
	s.bus.Publish(events.EventChatMessage, events.Payload{"message": View(msg)})

	return &msg, nil
}

// Recent returns the newest messages first. Limits outside (0, 50] clamp
// to 50. The default-sized query is served cache-aside with a short TTL.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	useCache := s.cache != nil && limit == DefaultHistoryLimit
	if useCache {
		if messages, ok := s.cache.GetRecent(ctx); ok {
			return messages, nil
		}
	}

	var messages []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Order("timestamp desc").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	if useCache {
		s.cache.SetRecent(ctx, messages)
	}
	return messages, nil
}
