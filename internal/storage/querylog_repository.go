package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// QueryLogRow is one stored query-log record.
type QueryLogRow struct {
	ID        int64
	TimeISO   string
	SessionID string
	Query     string
	Intent    string
	Score     float64
	Feedback  string
}

// InsertQueryLogs appends rows in a single transaction.
func (db *DB) InsertQueryLogs(ctx context.Context, rows []QueryLogRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO query_log (time_iso, session_id, query, intent, score, feedback)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	start := time.Now()
	err := db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.TimeISO, nullString(r.SessionID), r.Query,
				nullString(r.Intent), r.Score, nullString(r.Feedback)); err != nil {
				return fmt.Errorf("insert query log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert query logs", "count", len(rows), "error", err)
		return err
	}

	warnSlow(ctx, "InsertQueryLogs", start, 500*time.Millisecond, "count", len(rows))
	return nil
}

// RecentQueryLogs returns the newest rows first.
func (db *DB) RecentQueryLogs(ctx context.Context, limit int) ([]QueryLogRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, time_iso, session_id, query, intent, score, feedback
		FROM query_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []QueryLogRow
	for rows.Next() {
		var r QueryLogRow
		var session, intent, feedback sql.NullString
		if err := rows.Scan(&r.ID, &r.TimeISO, &session, &r.Query, &intent, &r.Score, &feedback); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		r.SessionID, r.Intent, r.Feedback = session.String, intent.String, feedback.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountQueryLogs returns the total number of stored records.
func (db *DB) CountQueryLogs(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query logs: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
