package watcher

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/bip/internal/session"
)

// NewCommits returns the commits in curr that prev did not contain, oldest
// first. With no previous state nothing is new.
func NewCommits(prev, curr *State) []session.GitCommit {
	if prev == nil || curr == nil {
		return nil
	}
	var fresh []session.GitCommit
	for _, c := range curr.Commits {
		if !prev.hashes[c.Hash] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// commitAlert announces fresh commits with a ready-to-post message.
func commitAlert(fresh []session.GitCommit, message string, now time.Time) Alert {
	title := fmt.Sprintf("New commit: %s", fresh[len(fresh)-1].Message)
	if len(fresh) > 1 {
		title = fmt.Sprintf("%d new commits", len(fresh))
	}
	return Alert{
		Level:   "info",
		Title:   title,
		Message: message,
		Time:    now,
	}
}
