// Package postgres provides a Postgres-backed transcript cache for
// deployments where several playback devices share one cache.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

// Config controls the Postgres connection pool used for transcript rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store writes transcript rows into Postgres.
type Store struct {
	pool pgxPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("transcripts.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Get returns the cached transcript for fileHash.
func (s *Store) Get(ctx context.Context, fileHash string) (transcript.Record, error) {
	rec := transcript.Record{FileHash: fileHash}
	var wordData []byte
	err := s.pool.QueryRow(ctx,
		`SELECT filename, transcript, word_data FROM transcripts WHERE file_hash = $1`,
		fileHash,
	).Scan(&rec.Filename, &rec.Transcript, &wordData)
	if errors.Is(err, pgx.ErrNoRows) {
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

// Put upserts rec on its file hash.
func (s *Store) Put(ctx context.Context, rec transcript.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	wordData, err := transcript.EncodeWords(rec.Words)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO transcripts (file_hash, filename, transcript, word_data)
VALUES ($1, $2, $3, $4)
ON CONFLICT (file_hash) DO UPDATE SET
	filename = EXCLUDED.filename,
	transcript = EXCLUDED.transcript,
	word_data = EXCLUDED.word_data`,
		rec.FileHash, rec.Filename, rec.Transcript, wordData,
	)
	if err != nil {
		return fmt.Errorf("store transcript %s: %w", rec.FileHash, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
