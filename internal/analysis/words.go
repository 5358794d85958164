package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

// FileHasher hashes an audio file into a cache key.
type FileHasher interface {
	HashFile(path string) (string, error)
}

// WordSource resolves word timings for an audio file through the transcript
// cache. A cache hit wins over the analysis document; a miss falls back to
// the document's words and backfills the cache.
type WordSource struct {
	hasher FileHasher
	store  transcript.Store
	logger *zap.Logger
}

// NewWordSource wires a WordSource. logger may be nil.
func NewWordSource(hasher FileHasher, store transcript.Store, logger *zap.Logger) *WordSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WordSource{hasher: hasher, store: store, logger: logger}
}

// Words returns the word timings for the audio file the document describes.
// audioPath is the on-disk location of the file named by doc.File.
func (ws *WordSource) Words(ctx context.Context, audioPath string, doc Document) ([]transcript.Word, error) {
	hash, err := ws.hasher.HashFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint audio: %w", err)
	}

	rec, err := ws.store.Get(ctx, hash)
	if err == nil {
		ws.logger.Debug("transcript cache hit",
			zap.String("file", doc.File),
			zap.String("hash", hash),
			zap.Int("words", len(rec.Words)),
		)
		return rec.Words, nil
	}
	if !errors.Is(err, transcript.ErrNotFound) {
		return nil, fmt.Errorf("transcript lookup: %w", err)
	}

	if len(doc.Words) == 0 {
		ws.logger.Debug("no word timings available", zap.String("file", doc.File))
		return nil, nil
	}

	rec = transcript.Record{
		FileHash:   hash,
		Filename:   filepath.Base(audioPath),
		Transcript: joinWords(doc.Words),
		Words:      doc.Words,
	}
	if err := ws.store.Put(ctx, rec); err != nil {
		// The cache is an optimization; a failed backfill should not stop
		// playback.
		ws.logger.Warn("transcript cache write failed",
			zap.String("hash", hash),
			zap.Error(err),
		)
	}
	return doc.Words, nil
}

func joinWords(words []transcript.Word) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w.Text
	}
	return out
}
