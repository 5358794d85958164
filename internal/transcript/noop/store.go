// Package noop provides a transcript cache that stores nothing. It keeps
// lyric-free deployments from needing a database.
package noop

import (
	"context"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

// Store discards writes and misses every read.
type Store struct{}

// New returns a no-op transcript cache.
func New() *Store { return &Store{} }

// Get always reports a cache miss.
func (*Store) Get(context.Context, string) (transcript.Record, error) {
	return transcript.Record{}, transcript.ErrNotFound
}

// Put discards the record.
func (*Store) Put(context.Context, transcript.Record) error { return nil }

// Close is a no-op.
func (*Store) Close() error { return nil }
