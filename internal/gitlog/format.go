// Package gitlog turns git commits into posts and imports recent history
// from a local repository.
package gitlog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blackwell-systems/bip/internal/session"
	"github.com/blackwell-systems/bip/internal/suggest"
)

const (
	maxPostLength = suggest.MaxMessageLength

	// maxMessageLength is what remains for the commit subject once the
	// header, file count, and hashtags are reserved.
	maxMessageLength = maxPostLength - 70

	overviewCommits = 3
)

// FormatCommitPost renders a single commit announcement. When the result
// would exceed the post limit the commit message is shortened first; the
// whole post is then budgeted in case the stats alone overflow.
func FormatCommitPost(c session.GitCommit) string {
	post := renderCommit(c, c.Message)
	if utf8.RuneCountInString(post) <= maxPostLength {
		return post
	}

	msg := c.Message
	if runes := []rune(msg); len(runes) > maxMessageLength {
		msg = string(runes[:maxMessageLength-3]) + "..."
	}
	return suggest.Budget(renderCommit(c, msg))
}

func renderCommit(c session.GitCommit, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s\n\n", message)
	b.WriteString("Changed " + fileCount(len(c.FilesChanged)))
	if c.HasLineStats() {
		adds, dels := c.LineStats()
		fmt.Fprintf(&b, " (+%d/-%d)", adds, dels)
	}
	b.WriteString("\n\n#BuildInPublic #Git")
	return b.String()
}

func fileCount(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

// SummarizeCommits renders commits as a thread. A single commit becomes
// one post; several become an overview followed by detail posts for the
// first three.
func SummarizeCommits(commits []session.GitCommit) []string {
	switch len(commits) {
	case 0:
		return nil
	case 1:
		return []string{FormatCommitPost(commits[0])}
	}

	head := commits
	if len(head) > overviewCommits {
		head = head[:overviewCommits]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 Just pushed %d commits!\n\nSummary of changes:\n", len(commits))
	for i, c := range head {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, c.Message)
	}
	if extra := len(commits) - overviewCommits; extra > 0 {
		fmt.Fprintf(&b, "\n... and %d more", extra)
	}
	b.WriteString("\n\n#BuildInPublic")

	thread := []string{suggest.Budget(b.String())}
	for _, c := range head {
		thread = append(thread, FormatCommitPost(c))
	}
	return thread
}
