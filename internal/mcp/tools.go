package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/auth"
	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/publish"
	"github.com/blackwell-systems/bip/internal/session"
	"github.com/blackwell-systems/bip/internal/status"
	"github.com/blackwell-systems/bip/internal/suggest"
)

// ContextStore loads and saves session contexts. *store.DB satisfies it.
type ContextStore interface {
	SaveContext(c *session.Context) error
	LoadContext(id string) (*session.Context, error)
}

// Deps are the services the tools call into.
type Deps struct {
	Version    string
	StorageDir string
	Engine     *suggest.Engine
	Contexts   ContextStore
	Prefs      *prefs.Service
	Publisher  *publish.Service
	Auth       *auth.Flow
	Status     func(ctx context.Context) (status.Report, error)
	Now        func() time.Time
	Logger     *slog.Logger
}

func (s *Server) now() time.Time {
	if s.deps.Now != nil {
		return s.deps.Now()
	}
	return time.Now()
}

var (
	noArgsSchema  = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
	tweetSchema   = json.RawMessage(`{"type":"object","properties":{"message":{"type":"string","description":"The tweet message to post (max 280 characters)"}},"required":["message"]}`)
	threadSchema  = json.RawMessage(`{"type":"object","properties":{"messages":{"type":"array","items":{"type":"string"},"description":"Tweet messages for the thread, in order"},"replyToTweetId":{"type":"string","description":"Optional tweet ID the thread replies to"}},"required":["messages"]}`)
	authSchema    = json.RawMessage(`{"type":"object","properties":{"pin":{"type":"string","description":"PIN code from X (leave empty to start the OAuth flow)"},"handshakeId":{"type":"string","description":"Handshake ID returned when the flow started (optional when only one is pending)"}}}`)
	contextSchema = json.RawMessage(`{"type":"object","properties":{"contextId":{"type":"string","description":"Optional context ID (uses the most recent session if not provided)"}}}`)
	saveSchema    = json.RawMessage(`{"type":"object","properties":{"context":{"type":"object","description":"Session context data"}},"required":["context"]}`)
	suggestSchema = json.RawMessage(`{"type":"object","properties":{"contextId":{"type":"string","description":"Optional context ID (uses the most recent session if not provided)"},"limit":{"type":"integer","description":"Maximum number of suggestions to return"}}}`)
	configSchema  = json.RawMessage(`{"type":"object","properties":{"language":{"type":"string","enum":["pt-BR","en-US"],"description":"Preferred language for generated posts"},"features":{"type":"object","description":"Enable or disable specific suggestion types","properties":{"enableCommitTweets":{"type":"boolean"},"enableAchievementTweets":{"type":"boolean"},"enableLearningTweets":{"type":"boolean"}}}}}`)
)

// addTools registers all MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "tweet",
		Description: "Post a tweet immediately for build in public. Requires authentication.",
		InputSchema: tweetSchema,
		Handler:     s.handleTweet,
	})
	s.registerTool(toolDef{
		Name:        "thread",
		Description: "Create a thread from multiple messages, posted as a reply chain.",
		InputSchema: threadSchema,
		Handler:     s.handleThread,
	})
	s.registerTool(toolDef{
		Name:        "setup_auth",
		Description: "Set up X authentication via OAuth 1.0a PIN flow. Call without a PIN to get the authorization URL, then again with the PIN to finish.",
		InputSchema: authSchema,
		Handler:     s.handleSetupAuth,
	})
	s.registerTool(toolDef{
		Name:        "status",
		Description: "Check authentication status and storage location.",
		InputSchema: noArgsSchema,
		Handler:     s.handleStatus,
	})
	s.registerTool(toolDef{
		Name:        "suggest",
		Description: "Generate tweet suggestions from the saved session context.",
		InputSchema: suggestSchema,
		Handler:     s.handleSuggest,
	})
	s.registerTool(toolDef{
		Name:        "save_context",
		Description: "Save session context for later suggestions.",
		InputSchema: saveSchema,
		Handler:     s.handleSaveContext,
	})
	s.registerTool(toolDef{
		Name:        "get_context",
		Description: "Retrieve the current session context.",
		InputSchema: contextSchema,
		Handler:     s.handleGetContext,
	})
	s.registerTool(toolDef{
		Name:        "configure",
		Description: "Show or change preferences (language and suggestion types).",
		InputSchema: configSchema,
		Handler:     s.handleConfigure,
	})
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return errors.Wrap(err, "invalid arguments")
	}
	return nil
}

func (s *Server) handleTweet(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Message string `json:"message"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Message == "" {
		return nil, errors.New("message is required")
	}

	post, err := s.deps.Publisher.Tweet(ctx, params.Message)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("✅ Tweet posted successfully!\n\n🔗 %s\n\nMessage: \"%s\"", post.URL, params.Message), nil
}

func (s *Server) handleThread(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Messages       []string `json:"messages"`
		ReplyToTweetID string   `json:"replyToTweetId"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	thread, err := s.deps.Publisher.Thread(ctx, params.Messages, params.ReplyToTweetID)
	if err != nil {
		if len(thread.Posts) > 0 {
			return nil, errors.Wrapf(err, "thread stopped after %d of %d posts (starts at %s)",
				len(thread.Posts), len(params.Messages), thread.Posts[0].URL)
		}
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Thread posted successfully!\n\n🧵 %d tweets in thread\n🔗 Thread starts at: %s\n\nAll tweet URLs:",
		len(thread.Posts), thread.Posts[0].URL)
	for i, u := range thread.URLs() {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, u)
	}
	return b.String(), nil
}

func (s *Server) handleSetupAuth(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		PIN         string `json:"pin"`
		HandshakeID string `json:"handshakeId"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	if strings.TrimSpace(params.PIN) == "" {
		h, err := s.deps.Auth.Start(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "OAuth setup failed")
		}
		opened := "📋 Open this URL to authorize:"
		if h.BrowserOpened {
			opened = "✅ Authorization URL opened in your browser!\n\n📋 If the browser didn't open, go to:"
		}
		return fmt.Sprintf("🔐 X Authorization\n\n%s\n%s\n\n"+
			"After authorizing, X will show you a PIN code.\n\n"+
			"📝 Next step: call this tool again with the PIN:\n"+
			"   mcp__bip__setup_auth with pin: \"YOUR_PIN\" and handshakeId: \"%s\"\n\n"+
			"This authorization expires at %s.",
			opened, h.AuthURL, h.ID, h.ExpiresAt.Local().Format(time.Kitchen)), nil
	}

	creds, err := s.deps.Auth.Complete(ctx, params.HandshakeID, params.PIN)
	if err != nil {
		return nil, errors.Wrap(err, "OAuth setup failed")
	}
	who := "@" + creds.Username
	if creds.Username == "" {
		who = "your account"
	}
	return fmt.Sprintf("✅ Authentication successful!\n\n👤 Authenticated as: %s\n\n"+
		"You can now use:\n  - mcp__bip__tweet to post tweets\n  - mcp__bip__thread to create threads", who), nil
}

func (s *Server) handleStatus(ctx context.Context, _ json.RawMessage) (any, error) {
	r, err := s.deps.Status(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("📊 Build in Public Status\n\n")
	fmt.Fprintf(&b, "Version: %s\nStorage: %s\nLanguage: %s\n\n", r.Version, r.StorageDir, r.Language)
	fmt.Fprintf(&b, "App credentials: %s\n", mark(r.AppConfigured, "configured", "not set (TWITTER_APP_KEY / TWITTER_APP_SECRET)"))
	fmt.Fprintf(&b, "Credentials store: %s\n\n", r.CredentialsLocation)

	switch {
	case r.Authenticated:
		fmt.Fprintf(&b, "✅ Authenticated as: @%s (%s)\n", r.Username, r.Name)
	case r.AuthError != "":
		b.WriteString("⚠️  Stored credentials are invalid\n")
		fmt.Fprintf(&b, "   %s\n   Run mcp__bip__setup_auth to re-authenticate\n", r.AuthError)
	default:
		b.WriteString("❌ Not authenticated\n\nRun mcp__bip__setup_auth to authenticate with X\n")
	}
	if r.PendingAuth > 0 {
		fmt.Fprintf(&b, "🔐 Pending authorizations: %d\n", r.PendingAuth)
	}
	fmt.Fprintf(&b, "\nSession context: %s\n", mark(r.HasContext, "saved", "none"))
	if r.LastPostURL != "" {
		fmt.Fprintf(&b, "Last post: %s\n", r.LastPostURL)
	}
	return b.String(), nil
}

func mark(ok bool, yes, no string) string {
	if ok {
		return "✅ " + yes
	}
	return "❌ " + no
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

const noContextText = "⚠️  No session context found\n\n" +
	"Save context with mcp__bip__save_context, then ask for suggestions again."

func (s *Server) handleSuggest(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		ContextID string `json:"contextId"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	sc, err := s.deps.Contexts.LoadContext(params.ContextID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return noContextText, nil
	}

	suggestions := s.deps.Engine.Generate(sc)
	confidence := s.deps.Engine.ScoreConfidence(sc)
	if params.Limit > 0 && len(suggestions) > params.Limit {
		suggestions = suggestions[:params.Limit]
	}

	if len(suggestions) == 0 {
		return "💡 No strong suggestions yet\n\n" +
			"Session confidence: " + percent(confidence) + "\n\n" +
			"Keep working! Suggestions will appear when:\n" +
			"  - You commit code to git\n" +
			"  - You modify multiple files\n" +
			"  - You log achievements or learnings", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💡 Tweet Suggestions (%d)\n\n", len(suggestions))
	fmt.Fprintf(&b, "Overall confidence: %s\n\n", percent(confidence))
	for i, sg := range suggestions {
		fmt.Fprintf(&b, "%d. [%s confidence] %s\n", i+1, percent(sg.Confidence), sg.Type)
		fmt.Fprintf(&b, "   %s\n\n", sg.Reason)
		fmt.Fprintf(&b, "   \"%s\"\n\n", sg.Message)
	}
	b.WriteString("\nUse mcp__bip__tweet to post any of these suggestions!")
	return b.String(), nil
}

func (s *Server) handleSaveContext(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Context json.RawMessage `json:"context"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if len(params.Context) == 0 {
		return nil, errors.New("context is required")
	}

	sc, ignored, err := session.Decode(params.Context)
	if err != nil {
		return nil, err
	}
	sc.Normalize(s.now())
	if err := s.deps.Contexts.SaveContext(sc); err != nil {
		return nil, err
	}

	sum := sc.Summarize()
	var b strings.Builder
	b.WriteString("💾 Session context saved successfully!\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", sc.SessionID)
	fmt.Fprintf(&b, "Files modified: %d\nCommands run: %d\nCommits: %d\n", sum.FilesModified, sum.CommandsRun, sum.Commits)
	if len(ignored) > 0 {
		fmt.Fprintf(&b, "\n⚠️  Ignored malformed fields: %s\n", strings.Join(ignored, ", "))
	}
	b.WriteString("\nUse mcp__bip__suggest to generate tweet suggestions based on this context.")
	return b.String(), nil
}

const displayTime = "2006-01-02 15:04:05 MST"

func (s *Server) handleGetContext(_ context.Context, args json.RawMessage) (any, error) {
	var params struct {
		ContextID string `json:"contextId"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	sc, err := s.deps.Contexts.LoadContext(params.ContextID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return noContextText, nil
	}

	sum := sc.Summarize()
	var b strings.Builder
	b.WriteString("📊 Session Context\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", sc.SessionID)
	fmt.Fprintf(&b, "Started: %s\n", sc.StartTime.Local().Format(displayTime))
	if !sc.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "Last updated: %s\n", sc.LastUpdated.Local().Format(displayTime))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "📁 Files modified: %d\n", sum.FilesModified)
	fmt.Fprintf(&b, "⚙️  Commands run: %d\n", sum.CommandsRun)
	fmt.Fprintf(&b, "🔧 Tools used: %d\n", sum.ToolsUsed)
	fmt.Fprintf(&b, "💬 User messages: %d\n", sum.UserMessages)
	fmt.Fprintf(&b, "📝 Git commits: %d\n", sum.Commits)
	fmt.Fprintf(&b, "✅ Achievements: %d\n", sum.Achievements)
	fmt.Fprintf(&b, "🎯 Challenges: %d\n", sum.Challenges)
	fmt.Fprintf(&b, "💡 Learnings: %d\n", sum.Learnings)
	if sc.ShouldTweet {
		b.WriteString("\n🐦 Ready to tweet: Yes\n")
		if sc.TriggerMessage != "" {
			fmt.Fprintf(&b, "Trigger: \"%s\"\n", sc.TriggerMessage)
		}
	}
	return b.String(), nil
}

func (s *Server) handleConfigure(_ context.Context, args json.RawMessage) (any, error) {
	var u prefs.Update
	if err := decodeArgs(args, &u); err != nil {
		return nil, err
	}

	if u.IsEmpty() {
		return renderPreferences("⚙️  Current Configuration", s.deps.Prefs.Get()), nil
	}
	if u.Language != nil && !prefs.IsSupported(*u.Language) {
		return nil, errors.Newf("invalid language: %s (supported: %s)",
			*u.Language, strings.Join(prefs.SupportedLanguages, ", "))
	}

	p, err := s.deps.Prefs.Update(u)
	if err != nil {
		return nil, err
	}
	return renderPreferences("✅ Preferences updated successfully!", p), nil
}

func renderPreferences(title string, p prefs.Preferences) string {
	check := func(on bool) string {
		if on {
			return "✅"
		}
		return "❌"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nLanguage: %s\n\nFeatures:\n", title, p.Language)
	fmt.Fprintf(&b, "  • Commit tweets: %s\n", check(p.Features.EnableCommitTweets))
	fmt.Fprintf(&b, "  • Achievement tweets: %s\n", check(p.Features.EnableAchievementTweets))
	fmt.Fprintf(&b, "  • Learning tweets: %s\n", check(p.Features.EnableLearningTweets))
	return b.String()
}
