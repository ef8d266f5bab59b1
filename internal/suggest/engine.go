package suggest

import (
	"time"

	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/session"
)

// Engine runs every registered strategy against a session context and
// ranks what they produce. It is safe for concurrent use.
type Engine struct {
	prefs      PreferencesReader
	locales    *LocaleTable
	strategies []registration
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, which only affects ScoreConfidence.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocales replaces DefaultLocales.
func WithLocales(t *LocaleTable) Option {
	return func(e *Engine) { e.locales = t }
}

// NewEngine creates an engine with the built-in strategies registered in
// declaration order. A nil reader means default preferences.
func NewEngine(reader PreferencesReader, opts ...Option) *Engine {
	e := &Engine{
		prefs:   reader,
		locales: DefaultLocales,
		now:     time.Now,
		strategies: []registration{
			{kind: KindCommit, enabled: func(f prefs.Features) bool { return f.EnableCommitTweets }, run: CommitUpdate},
			{kind: KindAchievement, enabled: func(f prefs.Features) bool { return f.EnableAchievementTweets }, run: AchievementUpdate},
			{kind: KindLearning, enabled: func(f prefs.Features) bool { return f.EnableLearningTweets }, run: LearningUpdate},
			{kind: KindSession, run: SessionSummary},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) preferences() prefs.Preferences {
	if e.prefs == nil {
		return prefs.Default()
	}
	return e.prefs.Get()
}

// Kinds returns the kinds of the registered strategies in declaration order.
func (e *Engine) Kinds() []Kind {
	kinds := make([]Kind, len(e.strategies))
	for i, s := range e.strategies {
		kinds[i] = s.kind
	}
	return kinds
}

// Generate returns the suggestions for ctx sorted by descending confidence.
// Every eligible strategy runs exactly once; the result is empty, never
// nil, when none of them fire.
func (e *Engine) Generate(ctx *session.Context) []Suggestion {
	return e.generate(ctx, "")
}

// GenerateKind is Generate limited to the strategies of one kind.
func (e *Engine) GenerateKind(ctx *session.Context, kind Kind) []Suggestion {
	return e.generate(ctx, kind)
}

func (e *Engine) generate(ctx *session.Context, only Kind) []Suggestion {
	if ctx == nil {
		return []Suggestion{}
	}

	p := e.preferences()
	phrases := e.locales.Resolve(p.Language)

	var all []Suggestion
	for _, s := range e.strategies {
		if only != "" && s.kind != only {
			continue
		}
		if s.enabled != nil && !s.enabled(p.Features) {
			continue
		}
		if sg, ok := s.run(ctx, &phrases); ok {
			all = append(all, sg)
		}
	}
	return RankSuggestions(all)
}

// ScoreConfidence scores ctx against the engine's clock.
func (e *Engine) ScoreConfidence(ctx *session.Context) float64 {
	return ScoreConfidence(ctx, e.now())
}
