package library

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/db"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mediaRoot := t.TempDir()
	storage := NewFilesystemStorage(mediaRoot, zerolog.Nop())
	return NewServiceWithStorage(database, storage, events.NewBus(), zerolog.Nop()), mediaRoot
}

func TestUploadSongRejectsNonAudio(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UploadSong(context.Background(), "notes.txt", "text/plain", bytes.NewReader([]byte("hello")))
	if !errors.Is(err, ErrNotAudio) {
		t.Fatalf("expected ErrNotAudio, got %v", err)
	}
}

func TestUploadSongFallsBackToFilenameMetadata(t *testing.T) {
	svc, mediaRoot := newTestService(t)

	// Bytes without readable tags force the filename fallback
	payload := bytes.Repeat([]byte{0x00, 0x01}, 128)
	song, err := svc.UploadSong(context.Background(), "My Track.mp3", "audio/mpeg", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if song.Title != "My Track.mp3" {
		t.Fatalf("expected the verbatim filename as title, got %q", song.Title)
	}
	if song.Artist != "Unknown Artist" {
		t.Fatalf("expected placeholder artist, got %q", song.Artist)
	}
	if song.Duration != 0 {
		t.Fatalf("expected zero duration for unreadable audio, got %v", song.Duration)
	}
	if song.Filename != "My Track.mp3" {
		t.Fatalf("expected original filename preserved, got %q", song.Filename)
	}
	if song.FileSize != int64(len(payload)) {
		t.Fatalf("expected file size %d, got %d", len(payload), song.FileSize)
	}
	if got := svc.FileURL(song.FilePath); got != filepath.Join(mediaRoot, song.FilePath) {
		t.Fatalf("unexpected file url: %q", got)
	}

	stored := filepath.Join(mediaRoot, song.FilePath)
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("stored bytes differ from upload")
	}

	songs, err := svc.ListSongs(context.Background())
	if err != nil {
		t.Fatalf("list songs: %v", err)
	}
	if len(songs) != 1 || songs[0].ID != song.ID {
		t.Fatalf("expected uploaded song in listing, got %+v", songs)
	}
}

func TestDeleteSong(t *testing.T) {
	svc, mediaRoot := newTestService(t)

	song, err := svc.UploadSong(context.Background(), "gone.mp3", "audio/mpeg", bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.DeleteSong(context.Background(), song.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(mediaRoot, song.FilePath)); !os.IsNotExist(err) {
		t.Fatal("expected stored file to be removed")
	}

	if err := svc.DeleteSong(context.Background(), song.ID); !errors.Is(err, ErrSongNotFound) {
		t.Fatalf("expected ErrSongNotFound, got %v", err)
	}
}

func TestPlaylistSetSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	playlist, err := svc.CreatePlaylist(ctx, "Morning Show")
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if _, err := svc.CreatePlaylist(ctx, "  "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	songA, _ := svc.UploadSong(ctx, "a.mp3", "audio/mpeg", bytes.NewReader([]byte("a")))
	songB, _ := svc.UploadSong(ctx, "b.mp3", "audio/mpeg", bytes.NewReader([]byte("b")))

	if err := svc.AddSongToPlaylist(ctx, playlist.ID, songA.ID); err != nil {
		t.Fatalf("add song: %v", err)
	}
	if err := svc.AddSongToPlaylist(ctx, playlist.ID, songB.ID); err != nil {
		t.Fatalf("add song: %v", err)
	}
	// Duplicate add is a no-op
	if err := svc.AddSongToPlaylist(ctx, playlist.ID, songA.ID); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}

	if err := svc.AddSongToPlaylist(ctx, "missing", songA.ID); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
	if err := svc.AddSongToPlaylist(ctx, playlist.ID, "missing"); !errors.Is(err, ErrSongNotFound) {
		t.Fatalf("expected ErrSongNotFound, got %v", err)
	}

	lists, err := svc.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(lists))
	}
	if got := lists[0].SongIDs; len(got) != 2 || got[0] != songA.ID || got[1] != songB.ID {
		t.Fatalf("expected ordered pair of song ids, got %v", got)
	}
}

func TestActiveQueueHydration(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// No active playlist means an empty queue, not an error
	queue, err := svc.ActiveQueue(ctx)
	if err != nil {
		t.Fatalf("active queue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("expected empty queue, got %d songs", len(queue))
	}

	first, _ := svc.CreatePlaylist(ctx, "First")
	second, _ := svc.CreatePlaylist(ctx, "Second")

	songA, _ := svc.UploadSong(ctx, "a.mp3", "audio/mpeg", bytes.NewReader([]byte("a")))
	songB, _ := svc.UploadSong(ctx, "b.mp3", "audio/mpeg", bytes.NewReader([]byte("b")))
	if err := svc.AddSongToPlaylist(ctx, second.ID, songB.ID); err != nil {
		t.Fatalf("add song: %v", err)
	}
	if err := svc.AddSongToPlaylist(ctx, second.ID, songA.ID); err != nil {
		t.Fatalf("add song: %v", err)
	}

	if err := svc.SetActivePlaylist(ctx, first.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.SetActivePlaylist(ctx, second.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.SetActivePlaylist(ctx, "missing"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}

	// Only the latest activation is active
	var activeCount int64
	if err := svc.db.Model(&models.Playlist{}).Where("is_active = ?", true).Count(&activeCount).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("expected 1 active playlist, got %d", activeCount)
	}

	queue, err = svc.ActiveQueue(ctx)
	if err != nil {
		t.Fatalf("active queue: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != songB.ID || queue[1].ID != songA.ID {
		t.Fatalf("expected insertion-ordered queue, got %+v", queue)
	}
}
