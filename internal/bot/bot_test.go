package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/unibot-go/internal/catalog"
	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/genai"
	"github.com/garyellow/unibot-go/internal/intent"
	"github.com/garyellow/unibot-go/internal/knowledge"
	"github.com/garyellow/unibot-go/internal/logger"
	"github.com/garyellow/unibot-go/internal/metrics"
	"github.com/garyellow/unibot-go/internal/querylog"
	"github.com/garyellow/unibot-go/internal/respond"
)

func testBase() *knowledge.Base {
	return &knowledge.Base{
		QA: []knowledge.QAEntry{
			{Question: "When does the first semester start?", Answer: "The first semester starts in September."},
			{Question: "Where is the library?", Answer: "The library is beside the senate building."},
			{Question: "How do I pay my school fees?", Answer: "School fees are paid through the student portal."},
			{Question: "How do I register for courses?", Answer: "Course registration is done on the student portal."},
		},
		Courses: []catalog.Course{
			{Code: "CSC 101", Title: "Intro to Computing", Department: "computer science", Level: "100", Semester: catalog.SemesterFirst,
				Question: "CSC 101 Intro to Computing 100 level computer science first semester", Answer: "Intro to Computing"},
			{Code: "CSC 201", Title: "Data Structures", Department: "computer science", Level: "200", Semester: catalog.SemesterSecond,
				Question: "CSC 201 Data Structures 200 level computer science second semester", Answer: "CSC 201: Data Structures"},
			{Code: "CSC 203", Title: "Discrete Structures", Department: "computer science", Level: "200", Semester: catalog.SemesterSecond,
				Question: "CSC 203 Discrete Structures 200 level computer science second semester", Answer: "CSC 203: Discrete Structures"},
			{Code: "CSC 205", Title: "Operating Systems", Department: "computer science", Level: "200", Semester: catalog.SemesterFirst,
				Question: "CSC 205 Operating Systems 200 level computer science first semester", Answer: "CSC 205: Operating Systems"},
			{Code: "ACC 101", Title: "Principles of Accounting", Department: "accounting", Level: "100", Semester: catalog.SemesterFirst,
				Question: "ACC 101 Principles of Accounting 100 level accounting first semester", Answer: "ACC 101: Principles of Accounting"},
		},
	}
}

func newTestBot(t *testing.T, mutate ...func(*Options)) *Bot {
	t.Helper()
	opts := Options{
		Base:         testBase(),
		Seed:         42,
		RelatedLimit: 3,
		SessionTTL:   time.Hour,
		Logger:       logger.New("error"),
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	b, err := New(context.Background(), opts)
	require.NoError(t, err)
	return b
}

// switchEncoder serves the index build and fails or blocks afterward on demand.
type switchEncoder struct {
	genai.Encoder
	fail  atomic.Bool
	block atomic.Bool
}

func (e *switchEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if e.block.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.fail.Load() {
		return nil, fmt.Errorf("%w: test outage", domerrors.ErrEncoderUnavailable)
	}
	return e.Encoder.Encode(ctx, texts)
}

type collectSink struct {
	mu      sync.Mutex
	records []querylog.Record
}

func (s *collectSink) Name() string { return "collect" }
func (s *collectSink) Append(_ context.Context, records []querylog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}
func (s *collectSink) Close() error { return nil }

func TestScenario_GreetingOnce(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()

	// S1
	r := b.Reply(ctx, "hello", "s1")
	assert.Contains(t, respond.GreetingPhrases, r.Text)
	assert.Equal(t, intent.Greeting, r.Intent)
	assert.True(t, b.State("s1").Greeted)

	// S2
	r = b.Reply(ctx, "hello", "s1")
	assert.Equal(t, intent.SemanticFallback, r.Intent)
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	assert.Zero(t, r.Score)
	assert.True(t, b.State("s1").Greeted)
}

func TestScenario_CourseCode(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	// S3
	r := b.Reply(context.Background(), "what is CSC 101?", "s3")
	assert.Equal(t, intent.CourseCode, r.Intent)
	assert.Contains(t, r.Text, "CSC 101")
	assert.Contains(t, r.Text, "Intro to Computing")
	assert.Equal(t, "computer science", r.Department)
	assert.Equal(t, 1.0, r.Score)
}

func TestCourseCodeMiss(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	r := b.Reply(context.Background(), "tell me about MTH 999", "miss")
	assert.Equal(t, intent.CourseCode, r.Intent)
	assert.Equal(t, "Sorry, I couldn't find details for MTH 999.", r.Text)
	assert.Zero(t, r.Score)
}

func TestScenario_StructuredAndFollowUp(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()

	// S4
	r := b.Reply(ctx, "200 level computer science second semester courses", "s4")
	assert.Equal(t, intent.Structured, r.Intent)
	assert.Contains(t, r.Text, "CSC 201: Data Structures\nCSC 203: Discrete Structures")
	assert.NotContains(t, r.Text, "CSC 205")
	assert.Equal(t, "computer science", r.Department)

	state := b.State("s4")
	require.NotNil(t, state.LastSlots)
	assert.Equal(t, catalog.Slots{
		Department: "computer science",
		Faculty:    "College of Information and Communication Technology (CICOT)",
		Level:      "200",
		Semester:   "Second",
	}, *state.LastSlots)

	// S5
	r = b.Reply(ctx, "what about first semester?", "s4")
	assert.Equal(t, intent.Structured, r.Intent)
	assert.Contains(t, r.Text, "CSC 205: Operating Systems")
	assert.NotContains(t, r.Text, "CSC 201")
	assert.Equal(t, "First", b.State("s4").LastSlots.Semester)
	assert.Equal(t, "200", b.State("s4").LastSlots.Level)
}

func TestScenario_PidginBelowThreshold(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	// S6
	r := b.Reply(context.Background(), "wetin dey happen", "s6")
	assert.Equal(t, intent.SemanticFallback, r.Intent)
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	assert.Empty(t, r.RelatedQuestions)
	assert.NotNil(t, r.RelatedQuestions, "related questions serialize as []")

	state := b.State("s6")
	assert.False(t, state.Greeted)
	assert.Nil(t, state.LastSlots)
}

func TestSemanticMatchWithRelated(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	r := b.Reply(context.Background(), "where can I find the library?", "lib")
	assert.Equal(t, intent.SemanticFallback, r.Intent)
	assert.Contains(t, r.Text, "The library is beside the senate building.")
	assert.GreaterOrEqual(t, r.Score, 0.60)
	assert.Len(t, r.RelatedQuestions, 3)
	assert.NotContains(t, r.RelatedQuestions, "Where is the library?")
	assert.Equal(t, "When does the first semester start?", r.RelatedQuestions[0])
}

func TestSemanticDidYouMean(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	// Scores between the top-k and best-match thresholds.
	r := b.Reply(context.Background(), "library", "dym")
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	require.NotEmpty(t, r.RelatedQuestions)
	assert.Equal(t, "Where is the library?", r.RelatedQuestions[0])
	assert.LessOrEqual(t, len(r.RelatedQuestions), 3)
}

func TestStructuredWithoutDepartmentFallsThrough(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	r := b.Reply(context.Background(), "when does first semester start", "ft")
	assert.Equal(t, intent.SemanticFallback, r.Intent)
	assert.Contains(t, r.Text, "The first semester starts in September.")
	assert.Nil(t, b.State("ft").LastSlots)
}

func TestSmallTalk(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	r := b.Reply(context.Background(), "thank you so much", "st")
	assert.Equal(t, intent.SmallTalk, r.Intent)
	assert.Contains(t, respond.SmallTalkReplies["thanks"], r.Text)
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	for _, raw := range []string{"", "   ", "!!!", "???"} {
		r := b.Reply(context.Background(), raw, "empty")
		assert.Contains(t, respond.NoMatchPhrases, r.Text, "input %q", raw)
	}
	assert.False(t, b.State("empty").Greeted)
}

func TestInvalidUTF8(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	r := b.Reply(context.Background(), "hello \xff\xfe", "bad")
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	assert.False(t, b.State("bad").Greeted)
}

func TestEncoderOutageKeepsState(t *testing.T) {
	t.Parallel()
	enc := &switchEncoder{Encoder: genai.NewLocalEncoder(0)}
	b := newTestBot(t, func(o *Options) { o.Encoder = enc })
	ctx := context.Background()

	b.Reply(ctx, "hello", "out")
	b.Reply(ctx, "200 level computer science second semester courses", "out")
	before := b.State("out")

	enc.fail.Store(true)
	r := b.Reply(ctx, "where is the library hour", "out")
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	assert.Equal(t, []string{"Where is the library?"}, r.RelatedQuestions, "lexical suggestions fill in")
	assert.Equal(t, before, b.State("out"))
}

func TestEncoderTimeoutKeepsState(t *testing.T) {
	t.Parallel()
	enc := &switchEncoder{Encoder: genai.NewLocalEncoder(0)}
	b := newTestBot(t, func(o *Options) {
		o.Encoder = enc
		o.TurnTimeout = 50 * time.Millisecond
	})
	ctx := context.Background()

	b.Reply(ctx, "hello", "slow")
	enc.block.Store(true)

	start := time.Now()
	r := b.Reply(ctx, "where is the library", "slow")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, respond.NoMatchPhrases, r.Text)
	assert.True(t, b.State("slow").Greeted)
	assert.Nil(t, b.State("slow").LastSlots)
}

func TestReset(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()

	b.Reply(ctx, "hello", "r")
	require.True(t, b.State("r").Greeted)

	b.Reset("r")
	assert.False(t, b.State("r").Greeted)
	r := b.Reply(ctx, "hello", "r")
	assert.Equal(t, intent.Greeting, r.Intent)
}

func TestEphemeralSession(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	for range 2 {
		r := b.Reply(context.Background(), "hello", "")
		assert.Equal(t, intent.Greeting, r.Intent)
	}
	assert.Zero(t, b.Stats().Sessions)
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			id := fmt.Sprintf("user-%d", i)
			r := b.Reply(context.Background(), "hello", id)
			assert.Equal(t, intent.Greeting, r.Intent, id)
		})
	}
	wg.Wait()
	assert.Equal(t, 16, b.Stats().Sessions)
}

func TestQueryLogAndFeedback(t *testing.T) {
	t.Parallel()
	sink := &collectSink{}
	w := querylog.NewWriter([]querylog.Sink{sink}, querylog.WithFlushInterval(time.Hour))
	b := newTestBot(t, func(o *Options) { o.QueryLog = w })
	ctx := context.Background()

	b.Reply(ctx, "hello", "log")
	b.Reply(ctx, "where is the library", "log")
	require.NoError(t, b.Feedback(ctx, "log", "where is the library", "up"))
	require.NoError(t, w.Close(ctx))

	require.Len(t, sink.records, 3)
	assert.Equal(t, "hello", sink.records[0].Query)
	assert.Equal(t, 1.0, sink.records[0].Score)
	assert.Equal(t, "greeting", sink.records[0].Intent)
	assert.InDelta(t, 1.0, sink.records[1].Score, 1e-4)
	assert.Empty(t, sink.records[1].Feedback)
	assert.Equal(t, "up", sink.records[2].Feedback)
	assert.NotEmpty(t, sink.records[2].TimeISO)
}

func TestFeedbackValidation(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	err := b.Feedback(context.Background(), "s", " ", "up")
	assert.True(t, errors.Is(err, domerrors.ErrInvalidInput))
	err = b.Feedback(context.Background(), "s", "where is the library", "")
	assert.True(t, errors.Is(err, domerrors.ErrInvalidInput))
	var verr *domerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "feedback", verr.Field)
	assert.NoError(t, b.Feedback(context.Background(), "s", "where is the library", "down"))
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	b := newTestBot(t, func(o *Options) { o.Metrics = m })

	b.Reply(context.Background(), "hello", "m")
	b.Reply(context.Background(), "hello", "m")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("greeting", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("semantic_fallback", "no_match")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.KnowledgeEntries.WithLabelValues("qa")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.KnowledgeEntries.WithLabelValues("course")))
}

func TestStats(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)

	s := b.Stats()
	assert.Equal(t, 4, s.QAEntries)
	assert.Equal(t, 5, s.Courses)
	assert.Equal(t, 9, s.IndexedRows)
	assert.Equal(t, "local/hashing-v1", s.Encoder)
}

func TestNewRejectsMalformedKnowledgeBase(t *testing.T) {
	t.Parallel()
	base := testBase()
	base.Courses[0].Department = "astrology"

	_, err := New(context.Background(), Options{Base: base, Logger: logger.New("error")})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{QAPath: "/nonexistent/qa.json", Logger: logger.New("error")})
	assert.True(t, domerrors.IsMalformedKnowledgeBase(err), "got %v", err)
}

func TestDeterministicPhrasesWithSeed(t *testing.T) {
	t.Parallel()
	a := newTestBot(t)
	b := newTestBot(t)

	for i := range 5 {
		id := fmt.Sprintf("d%d", i)
		assert.Equal(t, a.Reply(context.Background(), "hello", id).Text, b.Reply(context.Background(), "hello", id).Text)
	}
}
