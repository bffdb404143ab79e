package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/ctxutil"
	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/extract"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/intent"
	"github.com/garyellow/unibot-go/internal/knowledge"
	"github.com/garyellow/unibot-go/internal/logger"
	"github.com/garyellow/unibot-go/internal/metrics"
	"github.com/garyellow/unibot-go/internal/normalize"
	"github.com/garyellow/unibot-go/internal/querylog"
	"github.com/garyellow/unibot-go/internal/rag"
	"github.com/garyellow/unibot-go/internal/respond"
	"github.com/garyellow/unibot-go/internal/session"
)

// Options configures New. Zero values fall back to the retrieval defaults.
type Options struct {
	// Base is the loaded knowledge base. When nil, QAPath and CoursesPath
	// are loaded instead.
	Base        *knowledge.Base
	QAPath      string
	CoursesPath string

	// Encoder encodes utterances and questions. Nil uses the local hashing encoder.
	Encoder genai.Encoder
	// EmbeddingStore caches question vectors across restarts. Optional.
	EmbeddingStore genai.EmbeddingStore
	BatchSize      int

	// Seed makes phrase selection deterministic. Zero seeds randomly.
	Seed int64

	BestMatchThreshold float64
	TopKThreshold      float64
	RelatedLimit       int
	SessionTTL         time.Duration
	TurnTimeout        time.Duration

	QueryLog *querylog.Writer
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

// OptionsFromConfig maps configuration onto bot options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		QAPath:             cfg.QAPath,
		CoursesPath:        cfg.CoursesPath,
		BatchSize:          cfg.Encoder.BatchSize,
		Seed:               cfg.Retrieval.RandomSeed,
		BestMatchThreshold: cfg.Retrieval.BestMatchThreshold,
		TopKThreshold:      cfg.Retrieval.TopKThreshold,
		RelatedLimit:       cfg.Retrieval.RelatedLimit,
		SessionTTL:         cfg.Retrieval.SessionTTL,
		TurnTimeout:        config.TurnProcessing,
	}
}

// Reply is what callers receive for one utterance.
type Reply struct {
	Text             string        `json:"text"`
	RelatedQuestions []string      `json:"related_questions"`
	Department       string        `json:"department,omitempty"`
	Intent           intent.Intent `json:"intent"`
	Score            float64       `json:"score"`
}

// Stats summarises what the bot has loaded.
type Stats struct {
	QAEntries     int      `json:"qa_entries"`
	Courses       int      `json:"courses"`
	IndexedRows   int      `json:"indexed_rows"`
	Sessions      int      `json:"sessions"`
	Encoder       string   `json:"encoder"`
	QueryLogSinks []string `json:"query_log_sinks,omitempty"`
}

// Bot owns the shared read-only resources and the per-session dialogue memory.
type Bot struct {
	base      *knowledge.Base
	retriever *rag.Retriever
	encoder   genai.Encoder
	sessions  *session.Store
	handle    TurnFunc
	queryLog  *querylog.Writer
	logger    *logger.Logger
	timeout   time.Duration
}

// New loads the knowledge base and builds every index. A malformed knowledge
// base or a failed index build is returned as an error.
func New(ctx context.Context, opts Options) (*Bot, error) {
	base := opts.Base
	if base == nil {
		var err error
		if base, err = knowledge.Load(opts.QAPath, opts.CoursesPath); err != nil {
			return nil, err
		}
	}

	cat, err := catalog.New(base.Courses)
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	norm, err := normalize.New(normalize.WithVocabulary(vocabulary(base)...))
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	encoder := opts.Encoder
	if encoder == nil {
		encoder = genai.NewLocalEncoder(0)
	}

	buildCtx, cancel := context.WithTimeout(ctx, config.IndexBuild)
	defer cancel()
	retriever, err := rag.NewRetriever(buildCtx, base.Entries(), rag.Options{
		Encoder:      encoder,
		IndexEncoder: genai.NewCachedEncoder(encoder, opts.EmbeddingStore),
		Normalizer:   norm,
		BatchSize:    opts.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	assembler := respond.New(nil)
	if opts.Seed != 0 {
		assembler = respond.NewSeeded(uint64(opts.Seed))
	}

	extractor := extract.New()
	orch, err := NewOrchestrator(OrchestratorConfig{
		Normalizer:         norm,
		Classifier:         intent.NewClassifier(extractor),
		Extractor:          extractor,
		Catalog:            cat,
		Retriever:          retriever,
		Assembler:          assembler,
		BestMatchThreshold: opts.BestMatchThreshold,
		TopKThreshold:      opts.TopKThreshold,
		RelatedLimit:       opts.RelatedLimit,
	})
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.New("info")
	}
	timeout := opts.TurnTimeout
	if timeout <= 0 {
		timeout = config.TurnProcessing
	}

	sessions := session.NewStore(opts.SessionTTL)
	if opts.Metrics != nil {
		m := opts.Metrics
		sessions.OnUpdate(m.SetSessionsActive)
		m.SetKnowledgeEntries("qa", len(base.QA))
		m.SetKnowledgeEntries("course", len(base.Courses))
	}

	b := &Bot{
		base:      base,
		retriever: retriever,
		encoder:   encoder,
		sessions:  sessions,
		queryLog:  opts.QueryLog,
		logger:    log,
		timeout:   timeout,
	}
	b.handle = Chain(orch.HandleTurn,
		RecoveryMiddleware(log, func() Turn { return orch.noMatch(intent.SemanticFallback, "") }),
		MetricsMiddleware(opts.Metrics),
		LoggingMiddleware(log),
	)

	log.WithField("qa_entries", len(base.QA)).
		WithField("courses", len(base.Courses)).
		WithField("encoder", encoder.Name()).
		Info("Bot initialized")
	return b, nil
}

// Reply answers raw for the session. It never fails: every error degrades to
// a polite reply. An empty sessionID runs the turn on a throwaway session.
func (b *Bot) Reply(ctx context.Context, raw, sessionID string) Reply {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if sessionID != "" {
		ctx = ctxutil.WithSessionID(ctx, sessionID)
	}

	var turn Turn
	if sessionID == "" {
		turn, _, _ = b.handle(ctx, raw, session.State{})
	} else {
		b.sessions.Update(sessionID, func(state session.State) (session.State, bool) {
			var next session.State
			var err error
			turn, next, err = b.handle(ctx, raw, state)
			return next, err == nil
		})
	}

	if b.queryLog != nil {
		b.queryLog.Log(querylog.NewRecord(sessionID, raw, turn.Intent.String(), turn.Score))
	}

	related := turn.Related
	if related == nil {
		related = []string{}
	}
	return Reply{
		Text:             turn.Text,
		RelatedQuestions: related,
		Department:       turn.Department,
		Intent:           turn.Intent,
		Score:            turn.Score,
	}
}

// Reset returns the session to its start state.
func (b *Bot) Reset(sessionID string) {
	b.sessions.Reset(sessionID)
}

// State returns a snapshot of the session's dialogue memory.
func (b *Bot) State(sessionID string) session.State {
	return b.sessions.Get(sessionID)
}

// Feedback appends a feedback record for a previous query. A blank query or
// feedback is a ValidationError.
func (b *Bot) Feedback(_ context.Context, sessionID, query, feedback string) error {
	query = strings.TrimSpace(query)
	feedback = strings.TrimSpace(feedback)
	switch {
	case query == "":
		return domerrors.NewValidationError("query", "must not be empty")
	case feedback == "":
		return domerrors.NewValidationError("feedback", "must not be empty")
	}
	if b.queryLog == nil {
		return nil
	}
	rec := querylog.NewRecord(sessionID, query, "", 0)
	rec.Feedback = feedback
	if !b.queryLog.Log(rec) {
		return domerrors.WithUserMessage("bot.feedback", errors.New("query log buffer is full"),
			"feedback could not be recorded, please try again later")
	}
	return nil
}

// Stats reports loaded sizes and live sessions.
func (b *Bot) Stats() Stats {
	s := Stats{
		QAEntries:   len(b.base.QA),
		Courses:     len(b.base.Courses),
		IndexedRows: b.retriever.Len(),
		Sessions:    b.sessions.Len(),
		Encoder:     b.encoder.Name(),
	}
	if b.queryLog != nil {
		s.QueryLogSinks = b.queryLog.Sinks()
	}
	return s
}

// Run evicts idle sessions until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.sessions.Run(ctx, config.SessionSweepInterval)
}

// vocabulary collects the words the spell checker must treat as correct.
func vocabulary(base *knowledge.Base) []string {
	words := make([]string, 0, len(base.QA)+2*len(base.Courses)+len(catalog.FacultyMap))
	for _, e := range base.QA {
		words = append(words, e.Question)
	}
	for _, c := range base.Courses {
		words = append(words, c.Question, c.Title, c.Department)
	}
	words = append(words, catalog.DepartmentNames()...)
	return words
}
