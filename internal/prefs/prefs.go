// Package prefs manages user preferences with defaults applied on read.
package prefs

import (
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
)

// Supported language tags.
const (
	LanguageEnUS = "en-US"
	LanguagePtBR = "pt-BR"
)

// DefaultLanguage is used when no language, or an unknown one, is stored.
const DefaultLanguage = LanguageEnUS

// SupportedLanguages lists every language tag a user may select.
var SupportedLanguages = []string{LanguagePtBR, LanguageEnUS}

// IsSupported reports whether lang is one of SupportedLanguages.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, lang)
}

// Features gates whole suggestion categories.
type Features struct {
	EnableCommitTweets      bool `json:"enableCommitTweets"`
	EnableAchievementTweets bool `json:"enableAchievementTweets"`
	EnableLearningTweets    bool `json:"enableLearningTweets"`
}

// Preferences is the complete, defaulted preference set.
type Preferences struct {
	Language string   `json:"language"`
	Features Features `json:"features"`
}

// Default returns the preferences used before anything has been saved.
func Default() Preferences {
	return Preferences{
		Language: DefaultLanguage,
		Features: Features{
			EnableCommitTweets:      true,
			EnableAchievementTweets: true,
			EnableLearningTweets:    true,
		},
	}
}

// Update is a partial change; nil fields keep their current value.
type Update struct {
	Language *string         `json:"language,omitempty"`
	Features *FeaturesUpdate `json:"features,omitempty"`
}

// FeaturesUpdate is a partial change to Features.
type FeaturesUpdate struct {
	EnableCommitTweets      *bool `json:"enableCommitTweets,omitempty"`
	EnableAchievementTweets *bool `json:"enableAchievementTweets,omitempty"`
	EnableLearningTweets    *bool `json:"enableLearningTweets,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u Update) IsEmpty() bool {
	return u.Language == nil && u.Features == nil
}

// Apply returns p with u merged in.
func (u Update) Apply(p Preferences) Preferences {
	if u.Language != nil {
		p.Language = *u.Language
	}
	if f := u.Features; f != nil {
		if f.EnableCommitTweets != nil {
			p.Features.EnableCommitTweets = *f.EnableCommitTweets
		}
		if f.EnableAchievementTweets != nil {
			p.Features.EnableAchievementTweets = *f.EnableAchievementTweets
		}
		if f.EnableLearningTweets != nil {
			p.Features.EnableLearningTweets = *f.EnableLearningTweets
		}
	}
	return p
}

// Repository persists the encoded preference document. LoadPreferences
// returns nil data when nothing has been saved.
type Repository interface {
	LoadPreferences() ([]byte, error)
	SavePreferences(data []byte) error
}

// Service reads and updates preferences through a Repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService returns a Service. A nil logger uses slog.Default().
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Get returns the stored preferences merged over the defaults. It never
// fails: unreadable or corrupt data yields the defaults.
func (s *Service) Get() Preferences {
	p := Default()
	if s == nil || s.repo == nil {
		return p
	}

	data, err := s.repo.LoadPreferences()
	if err != nil {
		s.logger.Warn("loading preferences failed, using defaults", "error", err)
		return p
	}
	if len(data) == 0 {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("stored preferences are corrupt, using defaults", "error", err)
		return Default()
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	return p
}

// Update merges u into the current preferences, saves and returns them.
// An unsupported language is rejected before anything is written.
func (s *Service) Update(u Update) (Preferences, error) {
	if u.Language != nil && !IsSupported(*u.Language) {
		return Preferences{}, errors.Newf("unsupported language %q (supported: %v)", *u.Language, SupportedLanguages)
	}

	updated := u.Apply(s.Get())
	data, err := json.Marshal(updated)
	if err != nil {
		return Preferences{}, errors.Wrap(err, "encoding preferences")
	}
	if err := s.repo.SavePreferences(data); err != nil {
		return Preferences{}, errors.Wrap(err, "saving preferences")
	}
	s.logger.Debug("preferences updated", "language", updated.Language)
	return updated, nil
}
