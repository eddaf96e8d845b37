package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/italolelis/organizer_hook/internal/config"
	"github.com/italolelis/organizer_hook/internal/hook"
	"github.com/italolelis/organizer_hook/internal/storage/sqlite"
	"github.com/italolelis/organizer_hook/internal/svc/organizer/organizertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(organizerURL string) *config.Config {
	cfg := &config.Config{OrganizerURL: organizerURL, LogLevel: "DEBUG"}
	cfg.Notify.MaxAttempts = 3
	cfg.Notify.BackoffStep = time.Millisecond
	cfg.Notify.RequestTimeout = 5 * time.Second
	cfg.Torrent.Dir = "/downloads/complete"
	cfg.Torrent.Name = "Some.Movie.2021.1080p.WEB-DL.x265"
	cfg.Telemetry.ServiceName = "organizer_hook_test"

	return cfg
}

type discordRecorder struct {
	mu       sync.Mutex
	messages []string
}

func newDiscord(t *testing.T) (*discordRecorder, string) {
	t.Helper()

	rec := &discordRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)

		rec.mu.Lock()
		rec.messages = append(rec.messages, payload["content"])
		rec.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	return rec, srv.URL
}

func TestRun_Acknowledged(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.Failure, organizertest.OK)
	discord, discordURL := newDiscord(t)

	cfg := testConfig(srv.ScanURL())
	cfg.DiscordWebhookURL = discordURL

	err := run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, srv.Calls(), 2)
	assert.Empty(t, discord.messages, "no alert when the organizer acknowledged")
	assert.Equal(t, ExitSuccess, exitCode(context.Background(), err, false))
}

func TestRun_ExhaustedAlertsAndJournals(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.Failure)
	discord, discordURL := newDiscord(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	cfg := testConfig(srv.ScanURL())
	cfg.DiscordWebhookURL = discordURL
	cfg.HistoryDBPath = dbPath

	err := run(context.Background(), cfg)

	var exhausted *hook.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Len(t, srv.Calls(), 3)

	require.Len(t, discord.messages, 1)
	assert.Contains(t, discord.messages[0], cfg.Torrent.Name)
	assert.Contains(t, discord.messages[0], "3rd attempt")

	db, err := sqlite.InitDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	records, err := sqlite.NewAttemptRepository(db).GetRecentAttempts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "exhausted", records[0].Outcome)
	assert.Equal(t, 3, records[0].Attempt)
	assert.Equal(t, cfg.Torrent.Name, records[0].ItemName)
	assert.Equal(t, records[0].RequestID, records[2].RequestID)
}

func TestRun_ItemHeadersAndTracing(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)

	cfg := testConfig(srv.ScanURL())
	cfg.Notify.IncludeItem = true
	cfg.Telemetry.Enabled = true

	require.NoError(t, run(context.Background(), cfg))

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, cfg.Torrent.Name, calls[0].TorrentName)
	assert.Equal(t, cfg.Torrent.Dir, calls[0].TorrentDir)
	assert.NotEmpty(t, calls[0].RequestID)
	assert.NotEmpty(t, calls[0].Traceparent)
}

func TestRun_UnusableJournalIsNotFatal(t *testing.T) {
	srv := organizertest.NewServer(t, organizertest.OK)

	cfg := testConfig(srv.ScanURL())
	cfg.HistoryDBPath = filepath.Join(t.TempDir(), "missing", "dir", "history.db")

	assert.NoError(t, run(context.Background(), cfg))
	assert.Len(t, srv.Calls(), 1)
}

func TestExitCode(t *testing.T) {
	exhausted := &hook.ExhaustedError{Attempts: 5, Last: errors.New("connection refused")}

	tests := []struct {
		name     string
		err      error
		softFail bool
		want     int
	}{
		{"acknowledged", nil, false, ExitSuccess},
		{"exhausted", exhausted, false, ExitNotAcknowledged},
		{"exhausted with soft fail", exhausted, true, ExitSuccess},
		{"interrupted with soft fail", context.Canceled, true, ExitNotAcknowledged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(context.Background(), tt.err, tt.softFail))
		})
	}
}

func TestExhaustionMessage(t *testing.T) {
	exhausted := &hook.ExhaustedError{Attempts: 5, Last: errors.New("organizer responded with HTTP 500: ERROR")}

	msg := exhaustionMessage(hook.Event{Name: "ubuntu-24.04.iso"}, exhausted)
	assert.Equal(t, "❌ Organizer scan not triggered for torrent: ubuntu-24.04.iso (gave up after the 5th attempt: organizer responded with HTTP 500: ERROR)", msg)

	msg = exhaustionMessage(hook.Event{}, exhausted)
	assert.Contains(t, msg, "unknown torrent")
}
