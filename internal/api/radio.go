/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/radio"
)

type currentSongResponse struct {
	CurrentSong *radio.Song `json:"current_song"`
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	song := a.station.Play(r.Context())
	writeJSON(w, http.StatusOK, currentSongResponse{CurrentSong: song})
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.station.Pause()
	snap := a.station.Status()
	writeJSON(w, http.StatusOK, currentSongResponse{CurrentSong: snap.CurrentSong})
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	song := a.station.Advance()
	writeJSON(w, http.StatusOK, currentSongResponse{CurrentSong: song})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.station.Status())
}

type setLiveRequest struct {
	IsLive bool `json:"is_live"`
}

func (a *API) handleSetLive(w http.ResponseWriter, r *http.Request) {
	var req setLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	a.station.SetLive(req.IsLive)
	writeJSON(w, http.StatusOK, map[string]bool{"is_live": req.IsLive})
}
