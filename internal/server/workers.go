/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/chat"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
)

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runChatFanout(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runStatsSampler(ctx)
	}()
}

// chatFrame is the websocket wire shape of a chat broadcast.
type chatFrame struct {
	Type    string           `json:"type"`
	Message chat.MessageView `json:"message"`
}

// runChatFanout relays persisted chat messages to every listener.
func (s *Server) runChatFanout(ctx context.Context) {
	sub := s.bus.Subscribe(events.EventChatMessage)
	defer s.bus.Unsubscribe(events.EventChatMessage, sub)

	s.logger.Info().Msg("chat fanout worker started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("chat fanout worker stopped")
			return
		case payload := <-sub:
			view, ok := payload["message"].(chat.MessageView)
			if !ok {
				continue
			}
			s.hub.Broadcast(chatFrame{Type: "chat_message", Message: view})
		}
	}
}

// runStatsSampler periodically persists a stats sample of station activity.
func (s *Server) runStatsSampler(ctx context.Context) {
	interval := s.cfg.StatsSampleInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("stats sampler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("stats sampler stopped")
			return
		case <-ticker.C:
			snap := s.station.Status()
			sample := models.RadioStats{
				ID:             uuid.NewString(),
				ListenersCount: snap.Listeners,
				IsPlaying:      snap.IsPlaying,
				IsLive:         snap.IsLive,
				Timestamp:      time.Now().UTC(),
			}
			if snap.CurrentSong != nil {
				sample.CurrentSongID = snap.CurrentSong.ID
			}
			if err := s.db.WithContext(ctx).Create(&sample).Error; err != nil {
				s.logger.Warn().Err(err).Msg("stats sample insert failed")
				continue
			}
			s.bus.Publish(events.EventStatsSample, events.Payload{
				"listeners":  sample.ListenersCount,
				"is_playing": sample.IsPlaying,
			})
		}
	}
}
