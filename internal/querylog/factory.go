package querylog

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/r2client"
	"github.com/garyellow/unibot-go/internal/storage"
)

// OpenSinks builds the sinks named in cfg.QueryLogSinks. db may be nil when
// the sqlite sink is not enabled.
func OpenSinks(ctx context.Context, cfg *config.Config, db *storage.DB) ([]Sink, error) {
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, name := range cfg.QueryLogSinks {
		switch name {
		case config.SinkSQLite:
			if db == nil {
				closeAll()
				return nil, errors.New("querylog: sqlite sink requires a database")
			}
			sinks = append(sinks, NewSQLiteSink(db))

		case config.SinkFile:
			s, err := NewFileSink(cfg.QueryLogFile)
			if err != nil {
				closeAll()
				return nil, err
			}
			sinks = append(sinks, s)

		case config.SinkR2:
			client, err := r2client.New(ctx, r2client.Config{
				Endpoint:    cfg.R2.Endpoint(),
				AccessKeyID: cfg.R2.AccessKeyID,
				SecretKey:   cfg.R2.SecretAccessKey,
				BucketName:  cfg.R2.BucketName,
			})
			if err == nil {
				err = client.CheckBucket(ctx)
			}
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("querylog: %w", err)
			}
			s, err := NewR2Sink(client, cfg.R2.LogPrefix, cfg.InstanceID)
			if err != nil {
				closeAll()
				return nil, err
			}
			sinks = append(sinks, s)

		default:
			closeAll()
			return nil, fmt.Errorf("querylog: unknown sink %q", name)
		}
	}
	return sinks, nil
}
