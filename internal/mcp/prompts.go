package mcp

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// promptDef describes a registered MCP prompt.
type promptDef struct {
	Name        string
	Description string
	Arguments   []promptArgument
	Render      func(args map[string]string) string
}

type promptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type promptListEntry struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []promptArgument `json:"arguments"`
}

type promptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

type promptMessage struct {
	Role    string     `json:"role"`
	Content mcpContent `json:"content"`
}

type promptsGetResult struct {
	Description string          `json:"description"`
	Messages    []promptMessage `json:"messages"`
}

func (s *Server) registerPrompt(def promptDef) {
	s.prompts = append(s.prompts, def)
}

func (s *Server) promptList() []promptListEntry {
	entries := make([]promptListEntry, 0, len(s.prompts))
	for _, p := range s.prompts {
		args := p.Arguments
		if args == nil {
			args = []promptArgument{}
		}
		entries = append(entries, promptListEntry{Name: p.Name, Description: p.Description, Arguments: args})
	}
	return entries
}

func (s *Server) getPrompt(params promptsGetParams) (promptsGetResult, error) {
	for _, p := range s.prompts {
		if p.Name == params.Name {
			return promptsGetResult{
				Description: p.Description,
				Messages: []promptMessage{{
					Role:    "user",
					Content: mcpContent{Type: "text", Text: p.Render(params.Arguments)},
				}},
			}, nil
		}
	}
	return promptsGetResult{}, errors.Newf("unknown prompt: %s", params.Name)
}

const retroPrompt = `# Build in Public - Retrospective Mode

Analyze the ENTIRE coding session and help me share what I accomplished.

## Your Task

1. **Review the full conversation** from the start of this session.
2. **Extract key information:**
   - What features were built?
   - What bugs were fixed?
   - What was learned (TIL moments)?
   - What challenges were overcome?
   - What technologies and tools were used?

3. **Save the context** by calling mcp__bip__save_context with a session context object including:
   - filesModified: file paths that were changed
   - commandsRun: notable commands executed
   - commits: git commits, if any
   - achievements: things accomplished
   - challenges: problems that were solved
   - learnings: new things discovered
   - toolsUsed: tools and technologies used

4. **Generate suggestions** by calling mcp__bip__suggest.

5. **Present options**: show me the suggestions with confidence scores and let me choose one to post (or customize).

6. **Post** the chosen one with mcp__bip__tweet.

Focus on what was actually accomplished, not hype.`

const suggestPrompt = `# Build in Public - Get Tweet Suggestions

Based on the current session context, generate tweet suggestions.

## Your Task

1. **Load context**: call mcp__bip__get_context to see what's available.
2. **Generate suggestions**: call mcp__bip__suggest.
3. **Present options** with their confidence scores.
4. **Let me choose** one to post, or take a custom message.
5. **Post** with mcp__bip__tweet when I'm ready.

Focus on authentic sharing of progress, learnings, and challenges.`

// addPrompts registers the retro, quick, and suggest prompts on s.
func addPrompts(s *Server) {
	s.registerPrompt(promptDef{
		Name:        "retro",
		Description: "Analyze your entire coding session and generate tweet suggestions about what you accomplished",
		Render:      func(map[string]string) string { return retroPrompt },
	})
	s.registerPrompt(promptDef{
		Name:        "quick",
		Description: "Post a quick tweet with a custom message",
		Arguments: []promptArgument{{
			Name:        "message",
			Description: "Your tweet message (will be posted immediately)",
			Required:    true,
		}},
		Render: func(args map[string]string) string {
			msg := strings.TrimSpace(args["message"])
			if msg == "" {
				return "Error: Please provide a message for your tweet."
			}
			return fmt.Sprintf("Post this message to X immediately using mcp__bip__tweet:\n\n\"%s\"\n\nAfter posting, show me the tweet URL.", msg)
		},
	})
	s.registerPrompt(promptDef{
		Name:        "suggest",
		Description: "Get tweet suggestions based on the current session context",
		Render:      func(map[string]string) string { return suggestPrompt },
	})
}
