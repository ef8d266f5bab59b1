package suggest

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/bip/internal/session"
)

// maxListedAchievements caps the numbered list in a progress update.
const maxListedAchievements = 3

// CommitUpdate announces the most recent commit.
func CommitUpdate(ctx *session.Context, p *Phrases) (Suggestion, bool) {
	commit, ok := ctx.LatestCommit()
	if !ok || commit.Message == "" {
		return Suggestion{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: \"%s\"\n\n", p.JustCommitted, commit.Message)
	fmt.Fprintf(&b, "%s %s. ", p.Modified, p.Files(len(commit.FilesChanged)))
	if commit.HasLineStats() {
		adds, dels := commit.LineStats()
		fmt.Fprintf(&b, "+%d/-%d %s. ", adds, dels, p.Lines)
	}
	b.WriteString(p.CommitHashtags)

	return Suggestion{
		Message:    Budget(b.String()),
		Confidence: ConfidenceCommit,
		Reason:     "Recent git commit detected",
		Type:       KindCommit,
	}, true
}

// AchievementUpdate lists the top achievements as a progress update. The
// reason carries the total count, not the number listed.
func AchievementUpdate(ctx *session.Context, p *Phrases) (Suggestion, bool) {
	if len(ctx.Achievements) == 0 {
		return Suggestion{}, false
	}

	top := ctx.Achievements
	if len(top) > maxListedAchievements {
		top = top[:maxListedAchievements]
	}

	var b strings.Builder
	b.WriteString(p.ProgressHeader)
	b.WriteString("\n\n")
	for i, a := range top {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\n")
	b.WriteString(p.Hashtag)

	return Suggestion{
		Message:    Budget(b.String()),
		Confidence: ConfidenceAchievement,
		Reason:     fmt.Sprintf("%d achievements logged", len(ctx.Achievements)),
		Type:       KindAchievement,
	}, true
}

// LearningUpdate shares the first (most recent) learning as a TIL.
func LearningUpdate(ctx *session.Context, p *Phrases) (Suggestion, bool) {
	if len(ctx.Learnings) == 0 || ctx.Learnings[0] == "" {
		return Suggestion{}, false
	}

	msg := fmt.Sprintf("%s\n\n%s\n\n%s", p.TILHeader, ctx.Learnings[0], p.LearningHashtags)

	return Suggestion{
		Message:    Budget(msg),
		Confidence: ConfidenceLearning,
		Reason:     "Learning moment captured",
		Type:       KindLearning,
	}, true
}

// SessionSummary wraps up a session that touched at least MinSessionFiles
// files.
func SessionSummary(ctx *session.Context, p *Phrases) (Suggestion, bool) {
	files := len(ctx.FilesModified)
	if files < MinSessionFiles {
		return Suggestion{}, false
	}

	var b strings.Builder
	b.WriteString(p.SessionHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s", p.Modified, p.Files(files))
	if tools := len(ctx.ToolsUsed); tools > 0 {
		fmt.Fprintf(&b, " %s %s", p.Using, p.Tools(tools))
	}
	b.WriteString(".")
	if len(ctx.Challenges) > 0 && ctx.Challenges[0] != "" {
		fmt.Fprintf(&b, "\n\n%s: %s", p.KeyChallenge, ctx.Challenges[0])
	}
	b.WriteString("\n\n")
	b.WriteString(p.Hashtag)

	return Suggestion{
		Message:    Budget(b.String()),
		Confidence: ConfidenceSession,
		Reason:     fmt.Sprintf("Active session with %d files modified", files),
		Type:       KindSession,
	}, true
}
