/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package radio holds the shared playback state machine. One Station exists
// per process and is the single authority on what is playing.
package radio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/listeners"
)

// Song is the playback view of a library song.
type Song struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Duration float64 `json:"duration"`
	Filename string  `json:"filename"`
	FilePath string  `json:"file_path"`
}

// StatusSnapshot is a consistent read of station state.
type StatusSnapshot struct {
	CurrentSong     *Song      `json:"current_song"`
	IsPlaying       bool       `json:"is_playing"`
	IsLive          bool       `json:"is_live"`
	Listeners       int        `json:"listeners"`
	CurrentPosition float64    `json:"current_position"`
	PlaylistLength  int        `json:"playlist_length"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
}

// stateFrame is the websocket wire shape of a state broadcast.
type stateFrame struct {
	Type            string  `json:"type"`
	CurrentSong     *Song   `json:"current_song"`
	IsPlaying       bool    `json:"is_playing"`
	IsLive          bool    `json:"is_live"`
	Listeners       int     `json:"listeners"`
	CurrentPosition float64 `json:"current_position"`
}

// PlaylistSource supplies the songs of the active playlist for hydration.
type PlaylistSource interface {
	ActiveQueue(ctx context.Context) ([]Song, error)
}

// Station is the process-wide playback state machine. A single mutex
// serializes every mutation; broadcasts happen after the snapshot is taken
// so slow listeners never hold the lock.
type Station struct {
	mu        sync.Mutex
	current   *Song
	playlist  []Song
	isPlaying bool
	isLive    bool
	position  float64
	startedAt *time.Time

	hub    *listeners.Hub
	source PlaylistSource
	bus    *events.Bus
	logger zerolog.Logger
}

// NewStation creates a stopped station with an empty playlist.
func NewStation(hub *listeners.Hub, source PlaylistSource, bus *events.Bus, logger zerolog.Logger) *Station {
	return &Station{
		hub:    hub,
		source: source,
		bus:    bus,
		logger: logger.With().Str("component", "station").Logger(),
	}
}

// Play starts or resumes playback. An empty playlist is hydrated from the
// active playlist first; hydration failures leave the station stopped.
// The current song survives pause/play cycles. The transition from stopped
// to playing stamps startedAt; calling Play while already playing leaves it
// untouched. Returns the song now playing, nil when there is nothing to play.
func (s *Station) Play(ctx context.Context) *Song {
	s.mu.Lock()

	if len(s.playlist) == 0 && s.source != nil {
		songs, err := s.source.ActiveQueue(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("active playlist hydration failed")
		} else {
			s.playlist = songs
		}
	}

	if s.current == nil && len(s.playlist) > 0 {
		song := s.playlist[0]
		s.current = &song
		s.position = 0
	}

	if s.current != nil {
		if !s.isPlaying {
			now := time.Now().UTC()
			s.startedAt = &now
		}
		s.isPlaying = true
	}

	current := cloneSong(s.current)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return current
}

// Pause stops playback unconditionally, keeping the current song and
// position so Play resumes where it left off. Idempotent.
func (s *Station) Pause() {
	s.mu.Lock()
	s.isPlaying = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// Advance moves to the song after the current one, matched by id. At the
// end of the playlist, or when the current song is unset or no longer in
// the playlist, nothing changes. Returns the song playing afterwards.
func (s *Station) Advance() *Song {
	s.mu.Lock()

	if s.current != nil {
		idx := -1
		for i, song := range s.playlist {
			if song.ID == s.current.ID {
				idx = i
				break
			}
		}
		if idx >= 0 && idx+1 < len(s.playlist) {
			song := s.playlist[idx+1]
			s.current = &song
			s.position = 0
			now := time.Now().UTC()
			s.startedAt = &now
		}
	}

	current := cloneSong(s.current)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return current
}

// ReportPosition records the playback position in seconds as reported by
// the streaming client and broadcasts the updated snapshot. Negative values
// clamp to zero.
func (s *Station) ReportPosition(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	s.position = seconds
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// SetLive toggles the live broadcast flag.
func (s *Station) SetLive(live bool) {
	s.mu.Lock()
	s.isLive = live
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// Status returns a consistent snapshot of station state.
func (s *Station) Status() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Connect registers a listener connection and broadcasts the updated state
// so the new listener immediately learns what is playing.
func (s *Station) Connect(conn listeners.Conn) string {
	id := s.hub.Register(conn)

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return id
}

// Disconnect removes a listener connection and broadcasts the updated
// listener count. Unknown ids are a no-op.
func (s *Station) Disconnect(id string) {
	s.hub.Unregister(id)

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
}

// snapshotLocked builds a StatusSnapshot. Callers hold s.mu.
func (s *Station) snapshotLocked() StatusSnapshot {
	return StatusSnapshot{
		CurrentSong:     cloneSong(s.current),
		IsPlaying:       s.isPlaying,
		IsLive:          s.isLive,
		Listeners:       s.hub.Count(),
		CurrentPosition: s.position,
		PlaylistLength:  len(s.playlist),
		StartedAt:       s.startedAt,
	}
}

func (s *Station) broadcast(snap StatusSnapshot) {
	s.hub.Broadcast(stateFrame{
		Type:            "radio_state",
		CurrentSong:     snap.CurrentSong,
		IsPlaying:       snap.IsPlaying,
		IsLive:          snap.IsLive,
		Listeners:       snap.Listeners,
		CurrentPosition: snap.CurrentPosition,
	})
	if s.bus != nil {
		s.bus.Publish(events.EventRadioState, events.Payload{
			"is_playing": snap.IsPlaying,
			"is_live":    snap.IsLive,
			"listeners":  snap.Listeners,
		})
	}
}

func cloneSong(song *Song) *Song {
	if song == nil {
		return nil
	}
	clone := *song
	return &clone
}
