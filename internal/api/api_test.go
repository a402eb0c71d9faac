package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	ws "nhooyr.io/websocket"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/chat"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/config"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/db"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/events"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/library"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/listeners"
	"github.com/marioarbosiberica-bot/LaicaFM/internal/radio"
)

type testEnv struct {
	api     *API
	router  chi.Router
	station *radio.Station
}

func newTestEnv(t *testing.T) *testEnv {
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

	bus := events.NewBus()
	storage := library.NewFilesystemStorage(t.TempDir(), zerolog.Nop())
	librarySvc := library.NewServiceWithStorage(database, storage, bus, zerolog.Nop())
	chatSvc := chat.NewService(database, nil, bus, zerolog.Nop())
	hub := listeners.NewHub(zerolog.Nop())
	station := radio.NewStation(hub, librarySvc, bus, zerolog.Nop())

	cfg := &config.Config{}
	a := New(database, cfg, librarySvc, chatSvc, station, zerolog.Nop())
	return &testEnv{api: a, router: a.Routes(), station: station}
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	return e.do(t, method, path, &buf, "application/json")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) uploadSong(t *testing.T, filename string) songResponse {
	t.Helper()
	body, contentType := multipartUpload(t, filename, "audio/mpeg", []byte("audio-bytes"))
	rec := e.do(t, http.MethodPost, "/songs/upload", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload returned %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[songResponse](t, rec)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUploadRejectsNonAudio(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	rec := env.do(t, http.MethodPost, "/songs/upload", body, contentType)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errBody := decodeBody[map[string]string](t, rec)
	if errBody["error"] != "not_audio" {
		t.Fatalf("unexpected error code: %q", errBody["error"])
	}
}

func TestUploadAndListSongs(t *testing.T) {
	env := newTestEnv(t)

	song := env.uploadSong(t, "Evening Mix.mp3")
	if song.Title != "Evening Mix.mp3" {
		t.Fatalf("expected fallback title, got %q", song.Title)
	}
	if song.Artist != "Unknown Artist" {
		t.Fatalf("expected placeholder artist, got %q", song.Artist)
	}
	if song.FileSize == 0 {
		t.Fatal("expected file size to be recorded")
	}
	if song.URL == "" {
		t.Fatal("expected a resolved file url")
	}

	rec := env.do(t, http.MethodGet, "/songs", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	songs := decodeBody[[]songResponse](t, rec)
	if len(songs) != 1 || songs[0].ID != song.ID {
		t.Fatalf("expected uploaded song in listing, got %+v", songs)
	}
}

func TestDeleteSong(t *testing.T) {
	env := newTestEnv(t)
	song := env.uploadSong(t, "gone.mp3")

	rec := env.do(t, http.MethodDelete, "/songs/"+song.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/songs/"+song.ID, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPlaylistEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/playlists", map[string]string{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/playlists", map[string]string{"name": "Drive Time"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	playlist := decodeBody[playlistResponse](t, rec)

	songA := env.uploadSong(t, "a.mp3")
	songB := env.uploadSong(t, "b.mp3")

	for _, songID := range []string{songA.ID, songB.ID, songA.ID} {
		rec = env.doJSON(t, http.MethodPost, "/playlists/"+playlist.ID+"/songs/"+songID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 adding song, got %d", rec.Code)
		}
	}

	rec = env.doJSON(t, http.MethodPost, "/playlists/missing/songs/"+songA.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown playlist, got %d", rec.Code)
	}
	rec = env.doJSON(t, http.MethodPost, "/playlists/"+playlist.ID+"/songs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown song, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/playlists", nil, "")
	playlists := decodeBody[[]playlistResponse](t, rec)
	if len(playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(playlists))
	}
	if got := playlists[0].Songs; len(got) != 2 || got[0] != songA.ID || got[1] != songB.ID {
		t.Fatalf("expected deduplicated ordered songs, got %v", got)
	}
}

func TestRadioControlFlow(t *testing.T) {
	env := newTestEnv(t)

	song := env.uploadSong(t, "opener.mp3")
	rec := env.doJSON(t, http.MethodPost, "/playlists", map[string]string{"name": "Rotation"})
	playlist := decodeBody[playlistResponse](t, rec)
	env.doJSON(t, http.MethodPost, "/playlists/"+playlist.ID+"/songs/"+song.ID, nil)
	rec = env.doJSON(t, http.MethodPost, "/playlists/"+playlist.ID+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 activating, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/radio/play", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	playResp := decodeBody[currentSongResponse](t, rec)
	if playResp.CurrentSong == nil || playResp.CurrentSong.ID != song.ID {
		t.Fatalf("expected uploaded song playing, got %+v", playResp.CurrentSong)
	}

	rec = env.do(t, http.MethodGet, "/radio/status", nil, "")
	status := decodeBody[radio.StatusSnapshot](t, rec)
	if !status.IsPlaying || status.PlaylistLength != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec = env.doJSON(t, http.MethodPost, "/radio/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/radio/status", nil, "")
	status = decodeBody[radio.StatusSnapshot](t, rec)
	if status.IsPlaying {
		t.Fatal("expected paused status")
	}
	if status.CurrentSong == nil || status.CurrentSong.ID != song.ID {
		t.Fatal("expected current song to survive pause")
	}

	// Single song playlist: next keeps the current song
	rec = env.doJSON(t, http.MethodPost, "/radio/next", nil)
	nextResp := decodeBody[currentSongResponse](t, rec)
	if nextResp.CurrentSong == nil || nextResp.CurrentSong.ID != song.ID {
		t.Fatalf("expected no-op advance, got %+v", nextResp.CurrentSong)
	}

	rec = env.doJSON(t, http.MethodPost, "/radio/live", map[string]bool{"is_live": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/radio/status", nil, "")
	status = decodeBody[radio.StatusSnapshot](t, rec)
	if !status.IsLive {
		t.Fatal("expected live flag set")
	}
}

func TestChatEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/chat/message", map[string]string{"username": "", "message": "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/chat/message", map[string]string{"username": "ana", "message": "hello"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	posted := decodeBody[chat.MessageView](t, rec)
	if posted.Username != "ana" {
		t.Fatalf("unexpected username: %q", posted.Username)
	}

	rec = env.do(t, http.MethodGet, "/chat/messages", nil, "")
	messages := decodeBody[[]chat.MessageView](t, rec)
	if len(messages) != 1 || messages[0].ID != posted.ID {
		t.Fatalf("expected posted message in history, got %+v", messages)
	}
}

func TestCurrentStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/stats/current", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := decodeBody[statsResponse](t, rec)
	if stats.ListenersCount != 0 || stats.IsPlaying || stats.IsLive {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	env.doJSON(t, http.MethodPost, "/radio/live", map[string]bool{"is_live": true})
	rec = env.do(t, http.MethodGet, "/stats/current", nil, "")
	stats = decodeBody[statsResponse](t, rec)
	if !stats.IsLive {
		t.Fatal("expected live flag in stats sample")
	}
}

func TestListenerWebSocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "test done")

	// Registration broadcasts state to every listener, including the new one
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read state frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame["type"] != "radio_state" {
		t.Fatalf("expected radio_state frame, got %v", frame["type"])
	}
	if frame["listeners"].(float64) != 1 {
		t.Fatalf("expected 1 listener, got %v", frame["listeners"])
	}

	// Position reports flow into station state
	report := `{"type":"position_update","position":42}`
	if err := conn.Write(ctx, ws.MessageText, []byte(report)); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.station.Status().CurrentPosition != 42 {
		if time.Now().After(deadline) {
			t.Fatal("position report never reached the station")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Malformed frames are dropped without closing the connection
	if err := conn.Write(ctx, ws.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write malformed frame: %v", err)
	}
	if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"position_update","position":7}`)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for env.station.Status().CurrentPosition != 7 {
		if time.Now().After(deadline) {
			t.Fatal("connection did not survive a malformed frame")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
