// Package querylog records one JSON record per handled turn and fans the
// records out to the configured sinks.
package querylog

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one query-log line. The JSON field names are a stable format.
type Record struct {
	TimeISO   string  `json:"time_iso"`
	Query     string  `json:"query"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	Intent    string  `json:"intent,omitempty"`
}

// NewRecord stamps a record with the current UTC time.
func NewRecord(sessionID, query, intent string, score float64) Record {
	return Record{
		TimeISO:   time.Now().UTC().Format(time.RFC3339Nano),
		Query:     query,
		Score:     score,
		SessionID: sessionID,
		Intent:    intent,
	}
}

// Sink persists batches of records.
type Sink interface {
	Name() string
	Append(ctx context.Context, records []Record) error
	Close() error
}

// encodeJSONL renders records as newline-delimited JSON.
func encodeJSONL(records []Record) ([]byte, error) {
	var buf []byte
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return buf, nil
}
