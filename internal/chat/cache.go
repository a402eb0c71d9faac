/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
)

const recentKey = "laicafm:cache:chat_recent"

// Cache is a Redis-backed cache for the recent-messages list with graceful
// fallback. When Redis is unreachable the cache disables itself and every
// read goes straight to the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// NewCache creates a chat cache. A failed ping leaves the cache disabled
// rather than failing startup.
func NewCache(addr, password string, db int, ttl time.Duration, logger zerolog.Logger) *Cache {
	logger = logger.With().Str("component", "chat-cache").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, chat history served from database only")
		return &Cache{ttl: ttl, logger: logger, disabled: true}
	}

	logger.Info().Str("addr", addr).Msg("chat cache initialized")
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Cache) available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError trips the circuit breaker on Redis failures.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
	c.logger.Warn().Msg("disabling chat cache due to Redis error")
}

// GetRecent returns the cached recent-messages list, if present.
func (c *Cache) GetRecent(ctx context.Context) ([]models.ChatMessage, bool) {
	if !c.available() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, recentKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get_recent")
		return nil, false
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		c.logger.Debug().Err(err).Msg("cached chat history corrupt, discarding")
		return nil, false
	}
	return messages, true
}

// SetRecent stores the recent-messages list.
func (c *Cache) SetRecent(ctx context.Context, messages []models.ChatMessage) {
	if !c.available() {
		return
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, recentKey, raw, c.ttl).Err(); err != nil {
		c.handleError(err, "set_recent")
	}
}

// Invalidate drops the cached list. Called after every insert.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.available() {
		return
	}
	if err := c.client.Del(ctx, recentKey).Err(); err != nil {
		c.handleError(err, "invalidate")
	}
}
