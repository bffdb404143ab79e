package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// maxHashesPerQuery keeps IN lists under SQLite's variable limit.
const maxHashesPerQuery = 500

// GetEmbeddings returns the cached vectors for hashes in one embedding space.
// Missing hashes are absent from the result.
func (db *DB) GetEmbeddings(ctx context.Context, encoder string, dim int, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	start := time.Now()

	for lo := 0; lo < len(hashes); lo += maxHashesPerQuery {
		chunk := hashes[lo:min(lo+maxHashesPerQuery, len(hashes))]
		args := make([]any, 0, len(chunk)+2)
		args = append(args, encoder, dim)
		for _, h := range chunk {
			args = append(args, h)
		}

		query := `SELECT text_hash, vector FROM embeddings WHERE encoder = ? AND dimension = ? AND text_hash IN (?` +
			strings.Repeat(",?", len(chunk)-1) + `)`
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			slog.ErrorContext(ctx, "failed to query embeddings", "encoder", encoder, "error", err)
			return nil, fmt.Errorf("query embeddings: %w", err)
		}
		if err := scanEmbeddings(rows, dim, out); err != nil {
			return nil, err
		}
	}

	warnSlow(ctx, "GetEmbeddings", start, 200*time.Millisecond, "count", len(hashes))
	return out, nil
}

func scanEmbeddings(rows *sql.Rows, dim int, out map[string][]float32) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var hash string
		var blob []byte
		if err := rows.Scan(&hash, &blob); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		if vec, ok := decodeVector(blob, dim); ok {
			out[hash] = vec
		}
	}
	return rows.Err()
}

// PutEmbeddings stores vectors, replacing any existing row for the same key.
func (db *DB) PutEmbeddings(ctx context.Context, encoder string, dim int, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	query := `
		INSERT INTO embeddings (encoder, dimension, text_hash, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(encoder, dimension, text_hash) DO UPDATE SET
			vector = excluded.vector,
			created_at = excluded.created_at
	`
	start := time.Now()
	createdAt := time.Now().Unix()
	err := db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		for hash, vec := range vectors {
			if len(vec) != dim {
				return fmt.Errorf("embedding %s: dimension %d, want %d", hash, len(vec), dim)
			}
			if _, err := stmt.ExecContext(ctx, encoder, dim, hash, encodeVector(vec), createdAt); err != nil {
				return fmt.Errorf("save embedding %s: %w", hash, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to save embeddings", "encoder", encoder, "count", len(vectors), "error", err)
		return err
	}

	slog.DebugContext(ctx, "batch operation completed",
		"operation", "PutEmbeddings",
		"count", len(vectors),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// CountEmbeddings returns the number of cached vectors for one embedding space.
func (db *DB) CountEmbeddings(ctx context.Context, encoder string, dim int) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE encoder = ? AND dimension = ?`, encoder, dim).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, bool) {
	if len(buf) != 4*dim {
		return nil, false
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, true
}
