package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hapticlabs/hapticsync/internal/hash/sha256"
	"github.com/hapticlabs/hapticsync/internal/transcript"
)

type mapStore struct {
	recs    map[string]transcript.Record
	putErr  error
	getErr  error
	putSeen int
}

func newMapStore() *mapStore {
	return &mapStore{recs: map[string]transcript.Record{}}
}

func (m *mapStore) Get(_ context.Context, hash string) (transcript.Record, error) {
	if m.getErr != nil {
		return transcript.Record{}, m.getErr
	}
	rec, ok := m.recs[hash]
	if !ok {
		return transcript.Record{}, transcript.ErrNotFound
	}
	return rec, nil
}

func (m *mapStore) Put(_ context.Context, rec transcript.Record) error {
	m.putSeen++
	if m.putErr != nil {
		return m.putErr
	}
	m.recs[rec.FileHash] = rec
	return nil
}

func (m *mapStore) Close() error { return nil }

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o600))
	return path
}

func TestWordsCacheMissBackfills(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	ws := NewWordSource(sha256.New(), store, nil)
	path := writeAudioFixture(t)
	doc := Document{
		File:  "song.wav",
		Words: []transcript.Word{{Start: 0.1, End: 0.4, Text: "hi"}},
	}

	words, err := ws.Words(context.Background(), path, doc)
	require.NoError(t, err)
	require.Equal(t, doc.Words, words)
	require.Equal(t, 1, store.putSeen)

	// The backfilled record is keyed by the file's real hash.
	hash, err := sha256.New().HashFile(path)
	require.NoError(t, err)
	rec, ok := store.recs[hash]
	require.True(t, ok)
	require.Equal(t, "song.wav", rec.Filename)
	require.Equal(t, "hi", rec.Transcript)
}

func TestWordsCacheHitWins(t *testing.T) {
	t.Parallel()

	path := writeAudioFixture(t)
	hash, err := sha256.New().HashFile(path)
	require.NoError(t, err)

	cached := []transcript.Word{{Start: 0.2, End: 0.6, Text: "cached"}}
	store := newMapStore()
	store.recs[hash] = transcript.Record{FileHash: hash, Filename: "song.wav", Words: cached}

	ws := NewWordSource(sha256.New(), store, nil)
	doc := Document{
		File:  "song.wav",
		Words: []transcript.Word{{Start: 0, End: 0.1, Text: "stale"}},
	}

	words, err := ws.Words(context.Background(), path, doc)
	require.NoError(t, err)
	require.Equal(t, cached, words)
	require.Zero(t, store.putSeen)
}

func TestWordsBackfillFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	store.putErr = errors.New("disk full")
	ws := NewWordSource(sha256.New(), store, nil)
	doc := Document{
		File:  "song.wav",
		Words: []transcript.Word{{Start: 0.1, End: 0.4, Text: "hi"}},
	}

	words, err := ws.Words(context.Background(), writeAudioFixture(t), doc)
	require.NoError(t, err)
	require.Equal(t, doc.Words, words)
}

func TestWordsMissWithoutDocumentWords(t *testing.T) {
	t.Parallel()

	ws := NewWordSource(sha256.New(), newMapStore(), nil)
	words, err := ws.Words(context.Background(), writeAudioFixture(t), Document{File: "song.wav"})
	require.NoError(t, err)
	require.Empty(t, words)
}

func TestWordsLookupFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newMapStore()
	store.getErr = errors.New("connection refused")
	ws := NewWordSource(sha256.New(), store, nil)
	_, err := ws.Words(context.Background(), writeAudioFixture(t), Document{File: "song.wav"})
	require.Error(t, err)
}
