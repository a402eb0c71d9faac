/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/library"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
)

// Default multipart memory limit for uploads when no global override is set.
const defaultMaxUploadBytes = 100 << 20 // 100 MB

type songResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Duration   float64   `json:"duration"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (a *API) songToResponse(s models.Song) songResponse {
	return songResponse{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Duration:   s.Duration,
		Filename:   s.Filename,
		FilePath:   s.FilePath,
		FileSize:   s.FileSize,
		URL:        a.library.FileURL(s.FilePath),
		UploadedAt: s.UploadedAt,
	}
}

type playlistResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Songs     []string  `json:"songs"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) handleUploadSong(w http.ResponseWriter, r *http.Request) {
	maxBytes := a.cfg.MaxUploadSizeBytes()
	if maxBytes == 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	song, err := a.library.UploadSong(r.Context(), header.Filename, contentType, file)
	if err != nil {
		if errors.Is(err, library.ErrNotAudio) {
			writeError(w, http.StatusBadRequest, "not_audio")
			return
		}
		a.logger.Error().Err(err).Str("filename", header.Filename).Msg("song upload failed")
		writeError(w, http.StatusInternalServerError, "upload_failed")
		return
	}

	writeJSON(w, http.StatusCreated, a.songToResponse(*song))
}

func (a *API) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := a.library.ListSongs(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list songs failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	out := make([]songResponse, 0, len(songs))
	for _, song := range songs {
		out = append(out, a.songToResponse(song))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")

	if err := a.library.DeleteSong(r.Context(), songID); err != nil {
		if errors.Is(err, library.ErrSongNotFound) {
			writeError(w, http.StatusNotFound, "song_not_found")
			return
		}
		a.logger.Error().Err(err).Str("song_id", songID).Msg("song delete failed")
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createPlaylistRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	playlist, err := a.library.CreatePlaylist(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, library.ErrEmptyName) {
			writeError(w, http.StatusBadRequest, "name_required")
			return
		}
		a.logger.Error().Err(err).Msg("playlist create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, playlistResponse{
		ID:        playlist.ID,
		Name:      playlist.Name,
		Songs:     []string{},
		IsActive:  playlist.IsActive,
		CreatedAt: playlist.CreatedAt,
	})
}

func (a *API) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.library.ListPlaylists(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list playlists failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	out := make([]playlistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistResponse{
			ID:        p.Playlist.ID,
			Name:      p.Playlist.Name,
			Songs:     p.SongIDs,
			IsActive:  p.Playlist.IsActive,
			CreatedAt: p.Playlist.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleAddSongToPlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	songID := chi.URLParam(r, "songID")

	if err := a.library.AddSongToPlaylist(r.Context(), playlistID, songID); err != nil {
		switch {
		case errors.Is(err, library.ErrPlaylistNotFound):
			writeError(w, http.StatusNotFound, "playlist_not_found")
		case errors.Is(err, library.ErrSongNotFound):
			writeError(w, http.StatusNotFound, "song_not_found")
		default:
			a.logger.Error().Err(err).Str("playlist_id", playlistID).Msg("add song failed")
			writeError(w, http.StatusInternalServerError, "add_failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (a *API) handleActivatePlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	if err := a.library.SetActivePlaylist(r.Context(), playlistID); err != nil {
		if errors.Is(err, library.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		a.logger.Error().Err(err).Str("playlist_id", playlistID).Msg("playlist activate failed")
		writeError(w, http.StatusInternalServerError, "activate_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}
