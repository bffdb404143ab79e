package querylog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/unibot-go/internal/r2client"
	"github.com/garyellow/unibot-go/internal/storage"
)

// FileSink appends JSONL records to a local file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens path for appending, creating parent directories.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("querylog: create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("querylog: open %s: %w", path, err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Name() string { return "file" }

// Append writes all records with a single write call.
func (s *FileSink) Append(_ context.Context, records []Record) error {
	data, err := encodeJSONL(records)
	if err != nil {
		return fmt.Errorf("querylog: encode: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("querylog: write: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// SQLiteSink stores records in the query_log table.
type SQLiteSink struct {
	db *storage.DB
}

// NewSQLiteSink wraps an open database. The sink does not own it.
func NewSQLiteSink(db *storage.DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Append(ctx context.Context, records []Record) error {
	rows := make([]storage.QueryLogRow, len(records))
	for i, r := range records {
		rows[i] = storage.QueryLogRow{
			TimeISO:   r.TimeISO,
			SessionID: r.SessionID,
			Query:     r.Query,
			Intent:    r.Intent,
			Score:     r.Score,
			Feedback:  r.Feedback,
		}
	}
	return s.db.InsertQueryLogs(ctx, rows)
}

func (s *SQLiteSink) Close() error { return nil }

// Uploader is the subset of the R2 client used by R2Sink.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// R2Sink uploads each batch as one zstd-compressed JSONL object.
// Keys look like <prefix>/<instance>/<unixnano>-<uuid>.jsonl.zst.
type R2Sink struct {
	client     Uploader
	prefix     string
	instanceID string
}

// NewR2Sink creates an R2 sink.
func NewR2Sink(client Uploader, prefix, instanceID string) (*R2Sink, error) {
	if client == nil {
		return nil, errors.New("querylog: r2 client is required")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("querylog: prefix must not be empty")
	}
	if instanceID == "" {
		instanceID = "unknown"
	}
	return &R2Sink{client: client, prefix: prefix, instanceID: instanceID}, nil
}

func (s *R2Sink) Name() string { return "r2" }

func (s *R2Sink) Append(ctx context.Context, records []Record) error {
	data, err := encodeJSONL(records)
	if err != nil {
		return fmt.Errorf("querylog: encode: %w", err)
	}
	compressed, err := r2client.Compress(data)
	if err != nil {
		return fmt.Errorf("querylog: compress: %w", err)
	}
	if _, err := s.client.Upload(ctx, s.objectKey(), bytes.NewReader(compressed), "application/zstd"); err != nil {
		return fmt.Errorf("querylog: upload: %w", err)
	}
	return nil
}

func (s *R2Sink) Close() error { return nil }

func (s *R2Sink) objectKey() string {
	return fmt.Sprintf("%s/%s/%d-%s.jsonl.zst", s.prefix, s.instanceID, time.Now().UnixNano(), uuid.NewString())
}
