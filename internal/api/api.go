/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: song and playlist management,
// playback control, chat history, stats, and the listener websocket.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/chat"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/config"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/library"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/radio"
)

// API exposes HTTP handlers.
type API struct {
	db      *gorm.DB
	cfg     *config.Config
	library *library.Service
	chat    *chat.Service
	station *radio.Station
	logger  zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, cfg *config.Config, librarySvc *library.Service, chatSvc *chat.Service, station *radio.Station, logger zerolog.Logger) *API {
	return &API{
		db:      db,
		cfg:     cfg,
		library: librarySvc,
		chat:    chatSvc,
		station: station,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// Routes builds the API router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", a.handleHealth)

	r.Route("/songs", func(r chi.Router) {
		r.Post("/upload", a.handleUploadSong)
		r.Get("/", a.handleListSongs)
		r.Delete("/{songID}", a.handleDeleteSong)
	})

	r.Route("/playlists", func(r chi.Router) {
		r.Post("/", a.handleCreatePlaylist)
		r.Get("/", a.handleListPlaylists)
		r.Post("/{playlistID}/songs/{songID}", a.handleAddSongToPlaylist)
		r.Post("/{playlistID}/activate", a.handleActivatePlaylist)
	})

	r.Route("/radio", func(r chi.Router) {
		r.Post("/play", a.handlePlay)
		r.Post("/pause", a.handlePause)
		r.Post("/next", a.handleNext)
		r.Post("/live", a.handleSetLive)
		r.Get("/status", a.handleStatus)
	})

	r.Route("/chat", func(r chi.Router) {
		r.Get("/messages", a.handleRecentMessages)
		r.Post("/message", a.handlePostMessage)
	})

	r.Get("/stats/current", a.handleCurrentStats)

	r.Get("/ws", a.handleListenerWS)

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
