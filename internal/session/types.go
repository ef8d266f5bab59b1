// Package session defines the accumulated record of one coding session and
// the lenient decoders used to rebuild it from stored or agent-supplied data.
package session

import (
	"time"

	"github.com/google/uuid"
)

// GitCommit is a single commit made during the session.
type GitCommit struct {
	Hash         string   `json:"hash" yaml:"hash"`
	Message      string   `json:"message" yaml:"message"`
	FilesChanged []string `json:"filesChanged" yaml:"filesChanged"`
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Additions    *int     `json:"additions,omitempty" yaml:"additions,omitempty"`
	Deletions    *int     `json:"deletions,omitempty" yaml:"deletions,omitempty"`
}

// HasLineStats reports whether either side of the diff stat is known.
func (c GitCommit) HasLineStats() bool {
	return c.Additions != nil || c.Deletions != nil
}

// LineStats returns additions and deletions, with unknown sides as zero.
func (c GitCommit) LineStats() (adds, dels int) {
	if c.Additions != nil {
		adds = *c.Additions
	}
	if c.Deletions != nil {
		dels = *c.Deletions
	}
	return adds, dels
}

// Context is the accumulated record of a coding session. Every sequence may
// be empty; consumers treat an empty sequence as "signal not present".
type Context struct {
	SessionID     string      `json:"sessionId" yaml:"sessionId"`
	StartTime     time.Time   `json:"startTime" yaml:"startTime"`
	LastUpdated   time.Time   `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	FilesModified []string    `json:"filesModified,omitempty" yaml:"filesModified,omitempty"`
	CommandsRun   []string    `json:"commandsRun,omitempty" yaml:"commandsRun,omitempty"`
	ToolsUsed     []string    `json:"toolsUsed,omitempty" yaml:"toolsUsed,omitempty"`
	UserMessages  []string    `json:"userMessages,omitempty" yaml:"userMessages,omitempty"`
	Commits       []GitCommit `json:"commits,omitempty" yaml:"commits,omitempty"`
	Achievements  []string    `json:"achievements,omitempty" yaml:"achievements,omitempty"`
	Challenges    []string    `json:"challenges,omitempty" yaml:"challenges,omitempty"`
	Learnings     []string    `json:"learnings,omitempty" yaml:"learnings,omitempty"`

	ShouldTweet    bool   `json:"shouldTweet,omitempty" yaml:"shouldTweet,omitempty"`
	CustomMessage  string `json:"customMessage,omitempty" yaml:"customMessage,omitempty"`
	TriggerMessage string `json:"triggerMessage,omitempty" yaml:"triggerMessage,omitempty"`
}

// New returns an empty context with a fresh session ID started at now.
func New(now time.Time) *Context {
	return &Context{
		SessionID: uuid.NewString(),
		StartTime: now.UTC(),
	}
}

// Normalize fills in the session ID and start time when the caller left
// them out, so a stored context always has both.
func (c *Context) Normalize(now time.Time) {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.StartTime.IsZero() {
		c.StartTime = now.UTC()
	}
}

// LatestCommit returns the most recent commit (the last element).
func (c *Context) LatestCommit() (GitCommit, bool) {
	if c == nil || len(c.Commits) == 0 {
		return GitCommit{}, false
	}
	return c.Commits[len(c.Commits)-1], true
}

// Summary holds per-category counts for display.
type Summary struct {
	FilesModified int `json:"files_modified"`
	CommandsRun   int `json:"commands_run"`
	ToolsUsed     int `json:"tools_used"`
	UserMessages  int `json:"user_messages"`
	Commits       int `json:"commits"`
	Achievements  int `json:"achievements"`
	Challenges    int `json:"challenges"`
	Learnings     int `json:"learnings"`
}

// Summarize counts each sequence in the context.
func (c *Context) Summarize() Summary {
	if c == nil {
		return Summary{}
	}
	return Summary{
		FilesModified: len(c.FilesModified),
		CommandsRun:   len(c.CommandsRun),
		ToolsUsed:     len(c.ToolsUsed),
		UserMessages:  len(c.UserMessages),
		Commits:       len(c.Commits),
		Achievements:  len(c.Achievements),
		Challenges:    len(c.Challenges),
		Learnings:     len(c.Learnings),
	}
}
