/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
)

type statsResponse struct {
	ListenersCount int       `json:"listeners_count"`
	CurrentSongID  string    `json:"current_song_id,omitempty"`
	IsPlaying      bool      `json:"is_playing"`
	IsLive         bool      `json:"is_live"`
	Timestamp      time.Time `json:"timestamp"`
}

// handleCurrentStats samples the live station state, persists the sample,
// and returns it.
func (a *API) handleCurrentStats(w http.ResponseWriter, r *http.Request) {
	snap := a.station.Status()

	stats := models.RadioStats{
		ID:             uuid.NewString(),
		ListenersCount: snap.Listeners,
		IsPlaying:      snap.IsPlaying,
		IsLive:         snap.IsLive,
		Timestamp:      time.Now().UTC(),
	}
	if snap.CurrentSong != nil {
		stats.CurrentSongID = snap.CurrentSong.ID
	}

	if err := a.db.WithContext(r.Context()).Create(&stats).Error; err != nil {
		a.logger.Error().Err(err).Msg("stats insert failed")
		writeError(w, http.StatusInternalServerError, "stats_failed")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		ListenersCount: stats.ListenersCount,
		CurrentSongID:  stats.CurrentSongID,
		IsPlaying:      stats.IsPlaying,
		IsLive:         stats.IsLive,
		Timestamp:      stats.Timestamp,
	})
}
