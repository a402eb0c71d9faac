package models

import (
	"time"
)

// Song is an uploaded audio asset.
type Song struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Title      string `gorm:"index"`
	Artist     string `gorm:"index"`
	Duration   float64
	Filename   string
	FilePath   string
	FileSize   int64
	UploadedAt time.Time
}

// Playlist groups songs into an ordered program.
type Playlist struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"index"`
	IsActive  bool   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaylistSong join table between playlists and songs.
// Position preserves insertion order for playback hydration.
type PlaylistSong struct {
	PlaylistID string `gorm:"type:uuid;primaryKey"`
	SongID     string `gorm:"type:uuid;primaryKey"`
	Position   int    `gorm:"index"`
}

// ChatMessage is a persisted listener chat line.
type ChatMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"index"`
	Message   string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"index"`
}

// RadioStats is a point-in-time sample of station activity.
type RadioStats struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	ListenersCount int
	CurrentSongID  string `gorm:"type:uuid"`
	IsPlaying      bool
	IsLive         bool
	Timestamp      time.Time `gorm:"index"`
}
