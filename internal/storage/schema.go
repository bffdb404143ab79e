package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createEmbeddingsTable(ctx, db); err != nil {
		return err
	}
	return createQueryLogTable(ctx, db)
}

// embeddings caches question vectors per embedding space.
func createEmbeddingsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS embeddings (
		encoder TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		text_hash TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (encoder, dimension, text_hash)
	);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create embeddings table: %w", err)
	}
	return nil
}

// query_log is append-only; feedback arrives as its own row.
func createQueryLogTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS query_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time_iso TEXT NOT NULL,
		session_id TEXT,
		query TEXT NOT NULL,
		intent TEXT,
		score REAL NOT NULL,
		feedback TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_query_log_time ON query_log(time_iso);
	CREATE INDEX IF NOT EXISTS idx_query_log_session ON query_log(session_id);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create query_log table: %w", err)
	}
	return nil
}
