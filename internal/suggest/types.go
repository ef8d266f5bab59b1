// Package suggest turns a session context into ranked, ready-to-post
// messages. It performs no I/O and keeps no state between calls.
package suggest

import (
	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/session"
)

// Kind identifies the strategy that produced a suggestion.
type Kind string

// Suggestion kinds.
const (
	KindCommit      Kind = "commit"
	KindAchievement Kind = "achievement"
	KindSession     Kind = "session"
	KindLearning    Kind = "learning"
)

// Fixed per-strategy confidence weights, used only for ranking.
const (
	ConfidenceCommit      = 0.85
	ConfidenceAchievement = 0.75
	ConfidenceLearning    = 0.70
	ConfidenceSession     = 0.60
)

// MinSessionFiles is the number of modified files at which a session
// summary becomes worth posting.
const MinSessionFiles = 3

// Suggestion is a finished, length-bounded candidate post.
type Suggestion struct {
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Type       Kind    `json:"type"`
}

// Strategy inspects one signal category and yields at most one suggestion.
// It reports false to abstain.
type Strategy func(ctx *session.Context, p *Phrases) (Suggestion, bool)

// registration binds a strategy to the feature flag that gates it.
// A nil enabled func means the strategy is always eligible.
type registration struct {
	kind    Kind
	enabled func(f prefs.Features) bool
	run     Strategy
}

// PreferencesReader supplies the current preferences. Implementations must
// always return a complete, defaulted value.
type PreferencesReader interface {
	Get() prefs.Preferences
}
