package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/storage"
)

func newWarmupCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Fill the embedding cache",
		Long: `Encodes every knowledge-base question and stores the vectors in the
SQLite cache, so the server starts without re-encoding the knowledge base.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			log := root.newLogger(cmd, cfg.LogLevel)

			db, err := storage.New(ctx, cfg.SQLitePath())
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer func() { _ = db.Close() }()

			encoder, err := genai.NewEncoder(ctx, cfg.Encoder)
			if err != nil {
				return fmt.Errorf("encoder: %w", err)
			}

			start := time.Now()
			b, err := newBot(ctx, cfg, log, encoder, db)
			if err != nil {
				return err
			}
			stats := b.Stats()

			cached, err := db.CountEmbeddings(ctx, encoder.Name(), encoder.Dimension())
			if err != nil {
				return fmt.Errorf("count embeddings: %w", err)
			}
			cmd.Printf("Encoder:      %s\n", stats.Encoder)
			cmd.Printf("Indexed rows: %d\n", stats.IndexedRows)
			cmd.Printf("Cached:       %d vectors in %s\n", cached, cfg.SQLitePath())
			cmd.Printf("Took:         %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
