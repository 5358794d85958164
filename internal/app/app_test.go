// Package app_test contains unit tests for the app package.
package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/app"
	"github.com/hapticlabs/hapticsync/internal/config"
	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/supervisor"
)

// testConfig builds a config that needs no hardware: stub audio, no PWM,
// sqlite cache in a temp dir.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Audio.Backend = "stub"
	cfg.Haptic.Enabled = false
	cfg.Transcripts.SQLitePath = filepath.Join(t.TempDir(), "transcripts.db")
	return cfg
}

// writeFixture lays out an analysis document plus the audio file it names.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.wav"), []byte("fake audio"), 0o600))
	doc := `{
		"file": "song.wav",
		"sample_rate": 44100,
		"melody": [{"t": 0.0, "pitch": 220.0}, {"t": 0.1, "pitch": 440.0}],
		"beats": [0.05],
		"words": [
			{"start": 0.0, "end": 0.1, "word": "hello"},
			{"start": 0.1, "end": 0.2, "word": "world"}
		]
	}`
	path := filepath.Join(dir, "song.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func newTestApp(t *testing.T, cfg config.Config, lyrics *bytes.Buffer) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, zap.NewNop(),
		app.WithLyricsWriter(lyrics),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestPlaySessionRunsLyricChannel(t *testing.T) {
	var lyrics bytes.Buffer
	a := newTestApp(t, testConfig(t), &lyrics)

	res, err := a.PlaySession(context.Background(), app.PlayRequest{AnalysisPath: writeFixture(t)})
	require.NoError(t, err)
	require.Equal(t, playback.FaultNone, res.Fault)
	require.NotEmpty(t, res.SessionID)

	out := lyrics.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "world") {
		t.Fatalf("lyric output %q missing words", out)
	}
}

func TestPlaySessionBackfillsTranscriptCache(t *testing.T) {
	cfg := testConfig(t)
	var lyrics bytes.Buffer
	a := newTestApp(t, cfg, &lyrics)

	fixture := writeFixture(t)
	_, err := a.PlaySession(context.Background(), app.PlayRequest{AnalysisPath: fixture})
	require.NoError(t, err)

	// A second run should be served from the cache and still play fine.
	_, err = a.PlaySession(context.Background(), app.PlayRequest{AnalysisPath: fixture})
	require.NoError(t, err)
}

func TestStartSessionReturnsID(t *testing.T) {
	var lyrics bytes.Buffer
	a := newTestApp(t, testConfig(t), &lyrics)

	id, err := a.StartSession(context.Background(), app.PlayRequest{AnalysisPath: writeFixture(t)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	waitForIdle(t, a)
	require.Equal(t, id, a.Supervisor().LastResult().SessionID)
}

func TestStartSessionRejectsMissingAnalysis(t *testing.T) {
	var lyrics bytes.Buffer
	a := newTestApp(t, testConfig(t), &lyrics)

	_, err := a.StartSession(context.Background(), app.PlayRequest{
		AnalysisPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	require.Error(t, err)
	require.Equal(t, supervisor.StateIdle, a.Supervisor().State())
}

func TestCloseDrainsProgressHub(t *testing.T) {
	var lyrics bytes.Buffer
	a, err := app.New(context.Background(), testConfig(t), zap.NewNop(),
		app.WithLyricsWriter(&lyrics),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	_, err = a.PlaySession(context.Background(), app.PlayRequest{AnalysisPath: writeFixture(t)})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestNewRejectsUnknownTranscriptProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcripts.Provider = "redis"
	_, err := app.New(context.Background(), cfg, zap.NewNop(),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.Error(t, err)
}

func waitForIdle(t *testing.T, a *app.App) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a.Supervisor().State() == supervisor.StateIdle {
			if res := a.Supervisor().LastResult(); res.SessionID != "" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never finished")
}
