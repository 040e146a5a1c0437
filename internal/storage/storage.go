package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"semidx/internal/ir"
)

const driverName = "sqlite"

// Store is a persistent embedding cache backed by SQLite. Vectors are
// keyed by (model, content hash) so switching embedding models never
// returns stale vectors.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	model        TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	dims         INTEGER NOT NULL,
	vector       BLOB NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (model, content_hash)
);
`

// Open opens (creating if needed) the embedding cache at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached vector for (model, hash). The second return is
// false when no entry exists.
func (s *Store) Get(ctx context.Context, model, hash string) (ir.Vector, bool, error) {
	var blob []byte
	var dims int
	err := s.db.QueryRowContext(ctx,
		"SELECT dims, vector FROM embeddings WHERE model = ? AND content_hash = ?",
		model, hash,
	).Scan(&dims, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query embedding: %w", err)
	}

	vec := deserializeVector(blob)
	if len(vec) != dims {
		return nil, false, fmt.Errorf("corrupt embedding: have %d dims, want %d", len(vec), dims)
	}
	return vec, true, nil
}

// Put stores or replaces the vector for (model, hash).
func (s *Store) Put(ctx context.Context, model, hash string, vec ir.Vector) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO embeddings (model, content_hash, dims, vector, created_at) VALUES (?, ?, ?, ?, ?)",
		model, hash, len(vec), serializeVector(vec), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// Len returns the number of cached vectors across all models.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// serializeVector converts a vector to a little-endian float32 blob.
func serializeVector(vec ir.Vector) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a blob back to a vector.
func deserializeVector(blob []byte) ir.Vector {
	vec := make(ir.Vector, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
