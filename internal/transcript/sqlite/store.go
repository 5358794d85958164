// Package sqlite provides a SQLite-backed transcript cache. It is the
// default provider for single-device deployments where the cache lives next
// to the audio files.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
	file_hash  TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	transcript TEXT NOT NULL,
	word_data  TEXT NOT NULL
)`

// Store is a SQLite-backed transcript cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path. The schema is applied
// automatically and the call is idempotent.
//
// SQLite allows a single writer, so the pool is capped at one connection
// with a busy timeout to ride out short contention.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript cache path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect transcript cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply transcript schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached transcript for fileHash.
func (s *Store) Get(ctx context.Context, fileHash string) (transcript.Record, error) {
	rec := transcript.Record{FileHash: fileHash}
	var wordData []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, transcript, word_data FROM transcripts WHERE file_hash = ?`,
		fileHash,
	).Scan(&rec.Filename, &rec.Transcript, &wordData)
	if errors.Is(err, sql.ErrNoRows) {
		return transcript.Record{}, transcript.ErrNotFound
	}
	if err != nil {
		return transcript.Record{}, fmt.Errorf("query transcript %s: %w", fileHash, err)
	}
	rec.Words, err = transcript.DecodeWords(wordData)
	if err != nil {
		return transcript.Record{}, fmt.Errorf("transcript %s: %w", fileHash, err)
	}
	return rec, nil
}

// Put stores rec, replacing any existing row for the same hash.
func (s *Store) Put(ctx context.Context, rec transcript.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	wordData, err := transcript.EncodeWords(rec.Words)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (file_hash, filename, transcript, word_data)
		 VALUES (?, ?, ?, ?)`,
		rec.FileHash, rec.Filename, rec.Transcript, string(wordData),
	)
	if err != nil {
		return fmt.Errorf("store transcript %s: %w", rec.FileHash, err)
	}
	return nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
