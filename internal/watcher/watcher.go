// Package watcher polls a git repository for new commits, folds them into
// the current session context, and emits alerts carrying the best post
// suggestion for what just landed.
package watcher

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/gitlog"
	"github.com/blackwell-systems/bip/internal/session"
	"github.com/blackwell-systems/bip/internal/suggest"
)

// DefaultDepth is how many recent commits each snapshot reads.
const DefaultDepth = 20

// State is a point-in-time view of the repository's recent history.
type State struct {
	Timestamp time.Time
	Commits   []session.GitCommit // oldest first
	Head      string

	hashes map[string]bool
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning"
	Title   string
	Message string
	Time    time.Time
}

// CommitReader reads the n most recent commits of the repository in dir,
// oldest first.
type CommitReader func(ctx context.Context, dir string, n int) ([]session.GitCommit, error)

// ContextStore loads and saves session contexts. *store.DB satisfies it.
type ContextStore interface {
	SaveContext(c *session.Context) error
	LoadContext(id string) (*session.Context, error)
}

// Suggester ranks suggestions for a context. *suggest.Engine satisfies it.
type Suggester interface {
	Generate(ctx *session.Context) []suggest.Suggestion
}

// Config configures a Watcher. Contexts and Engine may be nil, in which
// case new commits are only reported.
type Config struct {
	Repo     string
	Interval time.Duration
	Depth    int
	Contexts ContextStore
	Engine   Suggester
	Read     CommitReader
	Now      func() time.Time
	Logger   *slog.Logger
}

// Watcher checks a repository at a regular interval and emits alerts when
// new commits appear.
type Watcher struct {
	cfg           Config
	previous      *State
	alertFn       func(Alert)     // callback for emitting alerts
	lastAlertKeys map[string]bool // dedup: suppress repeated identical alerts
}

// New creates a Watcher for cfg.Repo.
func New(cfg Config, alertFn func(Alert)) *Watcher {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.Read == nil {
		cfg.Read = gitlog.ReadRecent
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		cfg:           cfg,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
	}
}

// Prime takes the baseline snapshot. Commits already present are never
// reported.
func (w *Watcher) Prime(ctx context.Context) (*State, error) {
	s, err := w.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initial snapshot")
	}
	w.previous = s
	return s, nil
}

// Run starts the watch loop. It primes the baseline unless Prime was already
// called, then checks at every interval. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.previous == nil {
		if _, err := w.Prime(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check performs a single cycle: snapshot, compare against the previous
// state, record new commits, and return any alerts. Identical alerts are
// suppressed until the underlying condition changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	var raw []Alert

	curr, err := w.Snapshot(ctx)
	if err != nil {
		raw = append(raw, Alert{
			Level:   "warning",
			Title:   "Reading git history failed",
			Message: err.Error(),
			Time:    w.cfg.Now(),
		})
	} else {
		fresh := NewCommits(w.previous, curr)
		w.previous = curr
		if len(fresh) > 0 {
			raw = append(raw, w.record(fresh)...)
		}
	}

	// Deduplicate: suppress alerts with the same title+message as last cycle.
	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys
	return alerts
}

// Snapshot reads the repository's recent commits.
func (w *Watcher) Snapshot(ctx context.Context) (*State, error) {
	commits, err := w.cfg.Read(ctx, w.cfg.Repo, w.cfg.Depth)
	if err != nil {
		return nil, err
	}
	s := &State{
		Timestamp: w.cfg.Now(),
		Commits:   commits,
		hashes:    make(map[string]bool, len(commits)),
	}
	for _, c := range commits {
		s.hashes[c.Hash] = true
	}
	if len(commits) > 0 {
		s.Head = commits[len(commits)-1].Hash
	}
	return s, nil
}

// record merges fresh commits into the latest session context and builds
// the alert announcing them.
func (w *Watcher) record(fresh []session.GitCommit) []Alert {
	now := w.cfg.Now()
	latest := fresh[len(fresh)-1]

	if w.cfg.Contexts == nil {
		return []Alert{commitAlert(fresh, gitlog.FormatCommitPost(latest), now)}
	}

	sc, err := w.cfg.Contexts.LoadContext("")
	if err != nil {
		return []Alert{saveFailed(err, now)}
	}
	if sc == nil {
		sc = session.New(now)
	}
	sc.Commits = gitlog.Merge(sc.Commits, fresh)
	if err := w.cfg.Contexts.SaveContext(sc); err != nil {
		return []Alert{saveFailed(err, now)}
	}
	w.cfg.Logger.Info("recorded new commits", "session", sc.SessionID, "count", len(fresh), "head", latest.Hash)

	message := gitlog.FormatCommitPost(latest)
	if w.cfg.Engine != nil {
		if ranked := w.cfg.Engine.Generate(sc); len(ranked) > 0 {
			message = ranked[0].Message
		}
	}
	return []Alert{commitAlert(fresh, message, now)}
}

func saveFailed(err error, now time.Time) Alert {
	return Alert{
		Level:   "warning",
		Title:   "Could not update session context",
		Message: err.Error(),
		Time:    now,
	}
}
