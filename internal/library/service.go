/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library manages uploaded songs and playlists.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/config"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/radio"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/telemetry"
)

var (
	// ErrNotAudio rejects uploads without an audio content type.
	ErrNotAudio = errors.New("file is not audio")
	// ErrSongNotFound indicates an unknown song id.
	ErrSongNotFound = errors.New("song not found")
	// ErrPlaylistNotFound indicates an unknown playlist id.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrEmptyName rejects playlists without a name.
	ErrEmptyName = errors.New("playlist name required")
)

// PlaylistWithSongs is a playlist plus its song ids in insertion order.
type PlaylistWithSongs struct {
	Playlist models.Playlist
	SongIDs  []string
}

// Service manages the song library and playlists.
type Service struct {
	db      *gorm.DB
	storage Storage
	bus     *events.Bus
	logger  zerolog.Logger
}

// NewService creates a library service using filesystem or S3 storage
// based on config.
func NewService(cfg *config.Config, db *gorm.DB, bus *events.Bus, logger zerolog.Logger) (*Service, error) {
	logger = logger.With().Str("component", "library").Logger()

	var storage Storage
	if cfg.StorageBackend == config.StorageS3 {
		s3Storage, err := NewS3Storage(context.Background(), S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize s3 storage: %w", err)
		}
		storage = s3Storage
	} else {
		storage = NewFilesystemStorage(cfg.MediaRoot, logger)
	}

	if err := storage.CheckAccess(context.Background()); err != nil {
		return nil, fmt.Errorf("storage access check: %w", err)
	}

	return &Service{
		db:      db,
		storage: storage,
		bus:     bus,
		logger:  logger,
	}, nil
}

// NewServiceWithStorage creates a library service with an explicit storage
// backend. Used by tests.
func NewServiceWithStorage(db *gorm.DB, storage Storage, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		storage: storage,
		bus:     bus,
		logger:  logger.With().Str("component", "library").Logger(),
	}
}

// UploadSong stores the uploaded bytes, extracts metadata, and inserts a
// Song row. The file is spooled to a temp file first so tags and duration
// can be probed before the bytes go to the storage backend.
func (s *Service) UploadSong(ctx context.Context, filename, contentType string, file io.Reader) (*models.Song, error) {
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, ErrNotAudio
	}

	tmp, err := os.CreateTemp("", "laicafm-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, file)
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	meta := extractMetadata(tmp.Name(), filename)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	id := uuid.NewString()
	key := id + filepath.Ext(filename)
	storedPath, err := s.storage.Store(ctx, key, tmp)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	song := models.Song{
		ID:         id,
		Title:      meta.Title,
		Artist:     meta.Artist,
		Duration:   meta.Duration,
		Filename:   filename,
		FilePath:   storedPath,
		FileSize:   size,
		UploadedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&song).Error; err != nil {
		// The row is authoritative; orphaned bytes are cleaned up best effort
		if delErr := s.storage.Delete(ctx, storedPath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", storedPath).Msg("orphaned upload cleanup failed")
		}
		return nil, fmt.Errorf("insert song: %w", err)
	}

	telemetry.SongsUploadedTotal.Inc()
	s.bus.Publish(events.EventSongUpload, events.Payload{"song_id": song.ID, "title": song.Title})
	s.logger.Info().
		Str("song_id", song.ID).
		Str("title", song.Title).
		Str("artist", song.Artist).
		Msg("song uploaded")

	return &song, nil
}

// FileURL resolves the stored path of a song to a backend-specific URL.
func (s *Service) FileURL(path string) string {
	return s.storage.URL(path)
}

// ListSongs returns all songs, newest upload first.
func (s *Service) ListSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := s.db.WithContext(ctx).Order("uploaded_at desc").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// DeleteSong removes a song row and best-effort deletes the stored file.
// Playlist references to the song are removed as well.
func (s *Service) DeleteSong(ctx context.Context, id string) error {
	var song models.Song
	if err := s.db.WithContext(ctx).First(&song, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSongNotFound
		}
		return fmt.Errorf("find song: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("song_id = ?", id).Delete(&models.PlaylistSong{}).Error; err != nil {
		return fmt.Errorf("remove playlist references: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&song).Error; err != nil {
		return fmt.Errorf("delete song: %w", err)
	}

	if err := s.storage.Delete(ctx, song.FilePath); err != nil {
		s.logger.Warn().Err(err).Str("path", song.FilePath).Msg("stored file delete failed")
	}

	s.bus.Publish(events.EventSongDelete, events.Payload{"song_id": id})
	return nil
}

// CreatePlaylist inserts an empty playlist.
func (s *Service) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	playlist := models.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, fmt.Errorf("insert playlist: %w", err)
	}
	return &playlist, nil
}

// ListPlaylists returns all playlists with their song ids.
func (s *Service) ListPlaylists(ctx context.Context) ([]PlaylistWithSongs, error) {
	var playlists []models.Playlist
	if err := s.db.WithContext(ctx).Order("created_at").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	result := make([]PlaylistWithSongs, 0, len(playlists))
	for _, playlist := range playlists {
		var links []models.PlaylistSong
		if err := s.db.WithContext(ctx).
			Where("playlist_id = ?", playlist.ID).
			Order("position").
			Find(&links).Error; err != nil {
			return nil, fmt.Errorf("list playlist songs: %w", err)
		}
		ids := make([]string, 0, len(links))
		for _, link := range links {
			ids = append(ids, link.SongID)
		}
		result = append(result, PlaylistWithSongs{Playlist: playlist, SongIDs: ids})
	}
	return result, nil
}

// AddSongToPlaylist appends a song to a playlist. Adding a song that is
// already present is a no-op, so the playlist behaves as an ordered set.
func (s *Service) AddSongToPlaylist(ctx context.Context, playlistID, songID string) error {
	var playlist models.Playlist
	if err := s.db.WithContext(ctx).First(&playlist, "id = ?", playlistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlaylistNotFound
		}
		return fmt.Errorf("find playlist: %w", err)
	}

	var song models.Song
	if err := s.db.WithContext(ctx).First(&song, "id = ?", songID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSongNotFound
		}
		return fmt.Errorf("find song: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.PlaylistSong{}).
		Where("playlist_id = ? AND song_id = ?", playlistID, songID).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if existing > 0 {
		return nil
	}

	var position int64
	if err := s.db.WithContext(ctx).Model(&models.PlaylistSong{}).
		Where("playlist_id = ?", playlistID).
		Count(&position).Error; err != nil {
		return fmt.Errorf("count playlist songs: %w", err)
	}

	link := models.PlaylistSong{
		PlaylistID: playlistID,
		SongID:     songID,
		Position:   int(position),
	}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("insert playlist song: %w", err)
	}
	return nil
}

// SetActivePlaylist marks a playlist as the hydration source, clearing the
// flag on every other playlist.
func (s *Service) SetActivePlaylist(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		if err := tx.First(&playlist, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlaylistNotFound
			}
			return fmt.Errorf("find playlist: %w", err)
		}

		if err := tx.Model(&models.Playlist{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate playlists: %w", err)
		}
		if err := tx.Model(&playlist).Update("is_active", true).Error; err != nil {
			return fmt.Errorf("activate playlist: %w", err)
		}
		return nil
	})
}

// ActiveQueue resolves the songs of the active playlist in insertion order.
// With no active playlist the queue is empty, not an error. Multiple active
// playlists can exist in the store; the first match wins.
func (s *Service) ActiveQueue(ctx context.Context) ([]radio.Song, error) {
	var playlist models.Playlist
	err := s.db.WithContext(ctx).First(&playlist, "is_active = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active playlist: %w", err)
	}

	var links []models.PlaylistSong
	if err := s.db.WithContext(ctx).
		Where("playlist_id = ?", playlist.ID).
		Order("position").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list playlist songs: %w", err)
	}

	queue := make([]radio.Song, 0, len(links))
	for _, link := range links {
		var song models.Song
		if err := s.db.WithContext(ctx).First(&song, "id = ?", link.SongID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve song %s: %w", link.SongID, err)
		}
		queue = append(queue, radio.Song{
			ID:       song.ID,
			Title:    song.Title,
			Artist:   song.Artist,
			Duration: song.Duration,
			Filename: song.Filename,
			FilePath: song.FilePath,
		})
	}
	return queue, nil
}
