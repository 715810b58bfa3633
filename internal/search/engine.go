package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	rerrors "github.com/Aman-CERP/ruleseek/internal/errors"
	"github.com/Aman-CERP/ruleseek/internal/rules"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EmptyQuestionMessage is shown to users who submit a blank question.
const EmptyQuestionMessage = "Вопрос не может быть пустым"

// DefaultMaxQueryLength bounds questions, in characters.
const DefaultMaxQueryLength = 500

// Answer is the outcome of Engine.Ask.
type Answer struct {
	Question       string
	Mode           Mode
	Terms          []string
	Rules          []ScoredRule
	TotalFound     int
	Matched        int
	CorpusVersion  uint64
	ProcessingTime time.Duration
	Cached         bool
	AskedAt        time.Time
}

// TopPoints lists the point numbers of the answer's rules in rank order.
func (a *Answer) TopPoints() []string {
	out := make([]string, 0, len(a.Rules))
	for _, r := range a.Rules {
		out = append(out, r.Point)
	}
	return out
}

// AnswerListener is notified after every successful Ask. Implementations
// must not block: slow work belongs on their own goroutine.
type AnswerListener interface {
	OnAnswer(ctx context.Context, a *Answer)
}

// Engine serves questions against the current corpus snapshot.
type Engine struct {
	store     *rules.Store
	cache     *lru.Cache[string, Result]
	metrics   *telemetry.QueryMetrics
	listeners []AnswerListener
	maxLength int
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithCacheSize sets the number of cached results. Zero disables caching.
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) {
		if n <= 0 {
			e.cache = nil
			return
		}
		e.cache, _ = lru.New[string, Result](n)
	}
}

// WithMaxQueryLength rejects longer questions. Zero disables the check.
func WithMaxQueryLength(n int) EngineOption {
	return func(e *Engine) { e.maxLength = n }
}

// WithListeners registers answer listeners, called in order.
func WithListeners(ls ...AnswerListener) EngineOption {
	return func(e *Engine) {
		for _, l := range ls {
			if l != nil {
				e.listeners = append(e.listeners, l)
			}
		}
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over store.
func NewEngine(store *rules.Store, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: rule store is required", ErrNilDependency)
	}
	e := &Engine{
		store:     store,
		maxLength: DefaultMaxQueryLength,
		logger:    slog.Default(),
		now:       time.Now,
	}
	WithCacheSize(256)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Store returns the rule store the engine reads from.
func (e *Engine) Store() *rules.Store {
	return e.store
}

// Validate checks a question before it is searched.
func (e *Engine) Validate(question string) error {
	if strings.TrimSpace(question) == "" {
		return rerrors.New(rerrors.ErrCodeQuestionEmpty, EmptyQuestionMessage, nil)
	}
	return e.validateLength(question)
}

func (e *Engine) validateLength(question string) error {
	if e.maxLength > 0 {
		if n := utf8.RuneCountInString(question); n > e.maxLength {
			return rerrors.New(rerrors.ErrCodeQueryTooLong,
				fmt.Sprintf("Вопрос слишком длинный: %d символов, максимум %d", n, e.maxLength), nil).
				WithDetail("length", strconv.Itoa(n))
		}
	}
	return nil
}

// Ask validates question, searches the current snapshot and notifies
// listeners. A blank question is a validation error.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	if err := e.Validate(question); err != nil {
		return nil, err
	}
	answer, err := e.run(ctx, question)
	if err != nil {
		return nil, err
	}
	for _, l := range e.listeners {
		l.OnAnswer(ctx, answer)
	}
	return answer, nil
}

// Query searches without validation or listeners. A blank question lists
// the first rules; callers such as the CLI use it for browsing.
func (e *Engine) Query(ctx context.Context, question string) (*Answer, error) {
	return e.run(ctx, question)
}

// Rules lists rules for the rules endpoint. With a non-empty search the
// ranked search over the whole corpus replaces the category listing. An
// over-long search is a validation error.
func (e *Engine) Rules(ctx context.Context, category, search string) ([]ScoredRule, error) {
	if search != "" {
		if err := e.validateLength(search); err != nil {
			return nil, err
		}
		a, err := e.run(ctx, search)
		if err != nil {
			return nil, err
		}
		return a.Rules, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filtered := e.store.Snapshot().FilterCategory(category)
	out := make([]ScoredRule, len(filtered))
	for i, r := range filtered {
		out[i] = ScoredRule{Rule: r}
	}
	return out, nil
}

// Categories lists the distinct categories of the current corpus.
func (e *Engine) Categories() []string {
	return e.store.Snapshot().Categories()
}

func (e *Engine) run(ctx context.Context, question string) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.now()
	snap := e.store.Snapshot()

	key := strconv.FormatUint(snap.Version, 10) + "\x00" + question
	var (
		res    Result
		cached bool
	)
	if e.cache != nil {
		res, cached = e.cache.Get(key)
	}
	if !cached {
		res = Run(snap.Rules, question)
		if e.cache != nil {
			e.cache.Add(key, res)
		}
	}
	elapsed := e.now().Sub(start)

	answer := &Answer{
		Question:       question,
		Mode:           res.Mode,
		Terms:          res.Terms,
		Rules:          res.Rules,
		TotalFound:     len(res.Rules),
		Matched:        res.Matched,
		CorpusVersion:  snap.Version,
		ProcessingTime: elapsed,
		Cached:         cached,
		AskedAt:        start,
	}

	e.recordMetrics(answer)
	e.logger.DebugContext(ctx, "search completed",
		slog.String("question", question),
		slog.String("mode", string(res.Mode)),
		slog.Int("terms", len(res.Terms)),
		slog.Int("found", answer.TotalFound),
		slog.Int("matched", res.Matched),
		slog.Bool("cached", cached),
		slog.Uint64("corpus_version", snap.Version),
		slog.Duration("elapsed", elapsed))

	return answer, nil
}

func (e *Engine) recordMetrics(a *Answer) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       a.Question,
		Mode:        telemetry.QueryMode(a.Mode),
		Terms:       a.Terms,
		ResultCount: a.TotalFound,
		Latency:     a.ProcessingTime,
		Timestamp:   a.AskedAt,
	})
}
