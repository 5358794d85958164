package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutThenGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	rec := transcript.Record{
		FileHash:   "abc123",
		Filename:   "song.wav",
		Transcript: "hello world",
		Words: []transcript.Word{
			{Start: 0.5, End: 0.9, Text: "hello"},
			{Start: 1.0, End: 1.4, Text: "world"},
		},
	}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestGetMissReportsNotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, transcript.ErrNotFound)
}

func TestPutReplacesExistingRow(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first := transcript.Record{FileHash: "h", Filename: "a.wav", Transcript: "old"}
	require.NoError(t, s.Put(ctx, first))

	second := transcript.Record{
		FileHash:   "h",
		Filename:   "a.wav",
		Transcript: "new",
		Words:      []transcript.Word{{Start: 0, End: 0.3, Text: "new"}},
	}
	require.NoError(t, s.Put(ctx, second))

	got, err := s.Get(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, "new", got.Transcript)
	require.Len(t, got.Words, 1)
}

func TestPutRejectsIncompleteRecord(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	err := s.Put(context.Background(), transcript.Record{Filename: "a.wav"})
	if err == nil {
		t.Fatal("expected error for record without file hash")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "transcripts.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(context.Background(), transcript.Record{
		FileHash: "h", Filename: "a.wav", Transcript: "kept",
	}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(context.Background(), "h")
	require.NoError(t, err)
	require.Equal(t, "kept", got.Transcript)

	if _, err := s2.Get(context.Background(), "missing"); !errors.Is(err, transcript.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
