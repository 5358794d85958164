// Package transcript defines the cached lyric transcript model and the
// storage interface its providers implement. Transcripts are keyed by the
// SHA-256 of the audio file so a re-encoded or renamed copy of the same
// recording misses the cache while a byte-identical file hits it.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Get when no transcript is cached for the
// requested file hash.
var ErrNotFound = errors.New("transcript not found")

// Word is a single recognized word with its timing in seconds from the start
// of the recording.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Record is one cached transcript.
type Record struct {
	FileHash   string
	Filename   string
	Transcript string
	Words      []Word
}

// Validate checks the fields a provider requires before persisting.
func (r Record) Validate() error {
	if r.FileHash == "" {
		return fmt.Errorf("transcript record: file hash is required")
	}
	if r.Filename == "" {
		return fmt.Errorf("transcript record: filename is required")
	}
	return nil
}

// Store is the transcript cache contract. Implementations live in the
// provider subpackages (sqlite, postgres, noop).
type Store interface {
	// Get returns the cached transcript for fileHash, or ErrNotFound.
	Get(ctx context.Context, fileHash string) (Record, error)
	// Put stores rec, replacing any existing entry for the same hash.
	Put(ctx context.Context, rec Record) error
	// Close releases provider resources.
	Close() error
}

// EncodeWords serializes word timings for storage in a text column.
func EncodeWords(words []Word) ([]byte, error) {
	if words == nil {
		words = []Word{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return nil, fmt.Errorf("encode word timings: %w", err)
	}
	return data, nil
}

// DecodeWords parses word timings stored by EncodeWords. An empty payload
// decodes to no words.
func DecodeWords(data []byte) ([]Word, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var words []Word
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("decode word timings: %w", err)
	}
	return words, nil
}
