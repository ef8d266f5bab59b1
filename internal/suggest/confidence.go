package suggest

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/blackwell-systems/bip/internal/session"
)

// ThreadMarker in a custom message is an explicit request to post.
const ThreadMarker = "#thread"

// RecencyWindow is how long after the session start activity counts as
// recent.
const RecencyWindow = 2 * time.Hour

// Confidence bonuses. They are summed and the total is capped at 1.0.
const (
	bonusThreadMarker = 0.8
	bonusCompletion   = 0.6
	bonusCommits      = 0.4
	bonusManyFiles    = 0.3
	bonusAchievements = 0.5
	bonusRecent       = 0.2
)

// completionPattern matches "done" style trigger messages in English and
// Portuguese.
var completionPattern = regexp.MustCompile(`(?i)(done|finished|terminei|conclu[ií])`)

// ScoreConfidence computes an advisory overall score in [0, 1] for the
// session. It does not depend on preferences or on which strategies fire.
func ScoreConfidence(ctx *session.Context, now time.Time) float64 {
	if ctx == nil {
		return 0
	}

	score := 0.0
	if strings.Contains(ctx.CustomMessage, ThreadMarker) {
		score += bonusThreadMarker
	}
	if completionPattern.MatchString(ctx.TriggerMessage) {
		score += bonusCompletion
	}
	if len(ctx.Commits) > 0 {
		score += bonusCommits
	}
	if len(ctx.FilesModified) >= MinSessionFiles {
		score += bonusManyFiles
	}
	if len(ctx.Achievements) > 0 {
		score += bonusAchievements
	}
	if !ctx.StartTime.IsZero() && now.Sub(ctx.StartTime) < RecencyWindow {
		score += bonusRecent
	}

	return math.Min(score, 1.0)
}
