// Package bot drives one dialogue turn through normalization, intent routing
// and the answering branches, and exposes the session-keyed Bot API used by
// the HTTP, LINE and CLI front ends.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/garyellow/unibot-go/internal/catalog"
	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/extract"
	"github.com/garyellow/unibot-go/internal/intent"
	"github.com/garyellow/unibot-go/internal/rag"
	"github.com/garyellow/unibot-go/internal/respond"
	"github.com/garyellow/unibot-go/internal/session"
)

// Turn is the outcome of one handled utterance.
type Turn struct {
	Text       string
	Related    []string
	Department string
	// Intent is the branch that produced Text. A structured query with no
	// catalogue rows reports SemanticFallback.
	Intent     intent.Intent
	Score      float64
	Normalized string
}

// Answered reports whether the turn produced an answer rather than a
// no-match or not-found reply.
func (t Turn) Answered() bool {
	return t.Score > 0
}

// Normalizer canonicalises raw utterances.
type Normalizer interface {
	Normalize(s string) (string, error)
}

// Retriever ranks the knowledge base against an utterance.
type Retriever interface {
	Rank(ctx context.Context, text string) (rag.Ranking, error)
	Suggest(text string, n int) []string
}

// OrchestratorConfig wires the pipeline components.
type OrchestratorConfig struct {
	Normalizer Normalizer
	Classifier *intent.Classifier
	Extractor  *extract.Extractor
	Catalog    *catalog.Catalog
	Retriever  Retriever
	Assembler  *respond.Assembler

	BestMatchThreshold float64
	TopKThreshold      float64
	RelatedLimit       int
}

// Orchestrator is stateless; dialogue state flows in and out of HandleTurn.
type Orchestrator struct {
	norm      Normalizer
	classify  *intent.Classifier
	extractor *extract.Extractor
	catalog   *catalog.Catalog
	retriever Retriever
	assembler *respond.Assembler

	bestThreshold float64
	topKThreshold float64
	relatedLimit  int
}

// NewOrchestrator fills unset thresholds with the retrieval defaults.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Normalizer == nil || cfg.Catalog == nil || cfg.Retriever == nil {
		return nil, errors.New("bot: normalizer, catalog and retriever are required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = intent.NewClassifier(cfg.Extractor)
	}
	if cfg.Assembler == nil {
		cfg.Assembler = respond.New(nil)
	}
	if cfg.BestMatchThreshold <= 0 {
		cfg.BestMatchThreshold = rag.DefaultBestMatchThreshold
	}
	if cfg.TopKThreshold <= 0 {
		cfg.TopKThreshold = rag.DefaultTopKThreshold
	}
	if cfg.RelatedLimit < 0 {
		cfg.RelatedLimit = 0
	}
	return &Orchestrator{
		norm:          cfg.Normalizer,
		classify:      cfg.Classifier,
		extractor:     cfg.Extractor,
		catalog:       cfg.Catalog,
		retriever:     cfg.Retriever,
		assembler:     cfg.Assembler,
		bestThreshold: cfg.BestMatchThreshold,
		topKThreshold: cfg.TopKThreshold,
		relatedLimit:  cfg.RelatedLimit,
	}, nil
}

// HandleTurn answers raw given the session's state and returns the state to
// commit. Every path yields a non-empty reply. A non-nil error means the turn
// degraded to a no-match reply and the returned state equals the input state.
func (o *Orchestrator) HandleTurn(ctx context.Context, raw string, state session.State) (Turn, session.State, error) {
	n, err := o.norm.Normalize(raw)
	if err != nil {
		return o.noMatch(intent.SemanticFallback, ""), state, err
	}
	if strings.TrimSpace(strings.ReplaceAll(n, "?", "")) == "" {
		return o.noMatch(intent.SemanticFallback, n), state, domerrors.ErrEmptyInput
	}

	tone := respond.DetectTone(raw)
	switch in := o.classify.Classify(raw, n, state); in {
	case intent.Greeting:
		return Turn{Text: o.assembler.Greeting(), Intent: in, Score: 1, Normalized: n}, state.WithGreeted(), nil

	case intent.SmallTalk:
		key := intent.MatchSmallTalk(raw, n)
		return Turn{Text: o.assembler.SmallTalk(key), Intent: in, Score: 1, Normalized: n}, state, nil

	case intent.CourseCode:
		return o.courseCode(n, tone), state, nil

	case intent.Structured:
		if turn, next, ok := o.structured(n, tone, state); ok {
			return turn, next, nil
		}
	}

	return o.semantic(ctx, n, tone, state)
}

func (o *Orchestrator) courseCode(n string, tone respond.Tone) Turn {
	code, _ := catalog.FindCode(n)
	course, ok := o.catalog.ByCode(code)
	if !ok {
		return Turn{Text: respond.CourseNotFound(code), Intent: intent.CourseCode, Normalized: n}
	}
	return Turn{
		Text:       o.assembler.Wrap(respond.CourseInfo(course.Code, course.Answer), tone),
		Department: course.Department,
		Intent:     intent.CourseCode,
		Score:      1,
		Normalized: n,
	}
}

// structured reports false when the slots lack a department or select no rows.
func (o *Orchestrator) structured(n string, tone respond.Tone, state session.State) (Turn, session.State, bool) {
	slots := o.extractor.Extract(n, state)
	if slots.Department == "" {
		return Turn{}, state, false
	}
	rows := o.catalog.Filter(slots)
	if len(rows) == 0 {
		return Turn{}, state, false
	}

	answers := make([]string, len(rows))
	for i, r := range rows {
		answers[i] = r.Answer
	}
	return Turn{
		Text:       o.assembler.Wrap(strings.Join(answers, "\n"), tone),
		Department: slots.Department,
		Intent:     intent.Structured,
		Score:      1,
		Normalized: n,
	}, state.WithLastSlots(slots), true
}

func (o *Orchestrator) semantic(ctx context.Context, n string, tone respond.Tone, state session.State) (Turn, session.State, error) {
	ranking, err := o.retriever.Rank(ctx, n)
	if err != nil {
		slog.WarnContext(ctx, "Semantic retrieval failed", "error", err)
		turn := o.noMatch(intent.SemanticFallback, n)
		turn.Related = o.retriever.Suggest(n, o.relatedLimit)
		return turn, state, err
	}

	if best, ok := ranking.Best(o.bestThreshold); ok {
		turn := Turn{
			Text:       o.assembler.Wrap(best.Entry.Answer, tone),
			Department: best.Entry.Department,
			Intent:     intent.SemanticFallback,
			Score:      best.Score,
			Normalized: n,
		}
		if top, ok := ranking.TopK(o.relatedLimit+1, o.topKThreshold); ok {
			turn.Related = top.Related
		}
		return turn, state, nil
	}

	turn := o.noMatch(intent.SemanticFallback, n)
	if top, ok := ranking.TopK(o.relatedLimit, o.topKThreshold); ok {
		related := append([]string{top.Primary.Entry.Question}, top.Related...)
		turn.Related = related[:min(len(related), o.relatedLimit)]
	} else {
		turn.Related = o.retriever.Suggest(n, o.relatedLimit)
	}
	return turn, state, nil
}

func (o *Orchestrator) noMatch(in intent.Intent, n string) Turn {
	return Turn{Text: o.assembler.NoMatch(), Intent: in, Normalized: n}
}
