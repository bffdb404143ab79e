package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/unibot-go/internal/bot"
	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/logger"
)

// rootOptions holds the persistent flags. Set flags override env config.
type rootOptions struct {
	qaPath      string
	coursesPath string
	encoder     string
	seed        int64
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "unibot",
		Short: "University help desk assistant",
		Long: `unibot answers questions about a university from a curated knowledge base.
It routes each message to a greeting, small talk, a course-code lookup,
a structured catalogue query or semantic retrieval over the Q&A set.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.qaPath, "qa", "", "path to the qa_dataset JSON file")
	flags.StringVar(&opts.coursesPath, "courses", "", "path to the course_data JSON file")
	flags.StringVar(&opts.encoder, "encoder", "", "sentence encoder: local, gemini or openai")
	flags.Int64Var(&opts.seed, "seed", 0, "seed for phrase selection (0 = random)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newAskCmd(opts),
		newChatCmd(opts),
		newVerifyCmd(opts),
		newWarmupCmd(opts),
	)
	return cmd
}

// loadConfig reads env config and applies the flags the user set.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("qa") {
		cfg.QAPath = o.qaPath
	}
	if flags.Changed("courses") {
		cfg.CoursesPath = o.coursesPath
	}
	if flags.Changed("encoder") {
		cfg.Encoder.Kind = o.encoder
	}
	if flags.Changed("seed") {
		cfg.Retrieval.RandomSeed = o.seed
	}
	cfg.LogLevel = o.logLevel

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(cmd *cobra.Command, level string) *logger.Logger {
	return logger.NewWithWriter(level, cmd.ErrOrStderr())
}

// newBot builds a bot without the server's query log and metrics. A nil
// encoder is created from cfg; a nil store skips the embedding cache.
func newBot(ctx context.Context, cfg *config.Config, log *logger.Logger, encoder genai.Encoder, store genai.EmbeddingStore) (*bot.Bot, error) {
	if encoder == nil {
		var err error
		if encoder, err = genai.NewEncoder(ctx, cfg.Encoder); err != nil {
			return nil, fmt.Errorf("encoder: %w", err)
		}
	}

	opts := bot.OptionsFromConfig(cfg)
	opts.Encoder = encoder
	opts.EmbeddingStore = store
	opts.Logger = log
	return bot.New(ctx, opts)
}

func printReply(cmd *cobra.Command, reply bot.Reply) {
	cmd.Println(reply.Text)
	if len(reply.RelatedQuestions) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Related questions:")
	for i, q := range reply.RelatedQuestions {
		cmd.Printf("  [%d] %s\n", i+1, q)
	}
}
