package app

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/suggest"
)

var (
	suggestLimit     int
	suggestType      string
	suggestContextID string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate ranked post suggestions for the current session",
	Long: `Read the saved session context and generate ready-to-post updates
from its commits, achievements, learnings, and activity. Suggestions are
ranked by confidence, highest first.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Maximum number of suggestions to show (0 for all)")
	suggestCmd.Flags().StringVar(&suggestType, "type", "", "Only show one type (commit, achievement, learning, session)")
	suggestCmd.Flags().StringVar(&suggestContextID, "context-id", "", "Session context ID (default: most recent)")
	rootCmd.AddCommand(suggestCmd)
}

// suggestReport is the --json shape of the suggest command.
type suggestReport struct {
	SessionID   string               `json:"session_id"`
	Confidence  float64              `json:"confidence"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

func runSuggest(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	kind := suggest.Kind(suggestType)
	if kind != "" && !slices.Contains(svc.engine.Kinds(), kind) {
		return errors.Newf("unknown suggestion type %q", suggestType)
	}

	sc, err := svc.db.LoadContext(suggestContextID)
	if err != nil {
		return errors.Wrap(err, "loading session context")
	}
	if sc == nil {
		return errors.New("no session context saved; run 'bip context save' or use the save_context MCP tool")
	}

	var suggestions []suggest.Suggestion
	if kind != "" {
		suggestions = svc.engine.GenerateKind(sc, kind)
	} else {
		suggestions = svc.engine.Generate(sc)
	}
	if suggestLimit > 0 && len(suggestions) > suggestLimit {
		suggestions = suggestions[:suggestLimit]
	}

	report := suggestReport{
		SessionID:   sc.SessionID,
		Confidence:  svc.engine.ScoreConfidence(sc),
		Suggestions: suggestions,
	}
	if report.Suggestions == nil {
		report.Suggestions = []suggest.Suggestion{}
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	renderSuggestions(cmd.OutOrStdout(), report)
	return nil
}

func renderSuggestions(w io.Writer, r suggestReport) {
	if len(r.Suggestions) == 0 {
		fmt.Fprintln(w, output.Section("Suggestions"))
		fmt.Fprintln(w)
		fmt.Fprintf(w, " No strong suggestions yet. Session confidence %s\n", output.ConfidenceBar(r.Confidence, 10))
		fmt.Fprintln(w, output.StyleMuted.Render(" Commit code, touch a few files, or log an achievement or learning."))
		return
	}

	fmt.Fprintln(w, output.Section(fmt.Sprintf("Suggestions (%d)", len(r.Suggestions))))
	fmt.Fprintf(w, " %s\n\n", output.KeyValue("Session confidence", output.ConfidenceBar(r.Confidence, 10)))

	for i, s := range r.Suggestions {
		fmt.Fprintf(w, " #%d %s %s\n", i+1, output.StyleBold.Render(string(s.Type)), output.ConfidenceBar(s.Confidence, 10))
		fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render(s.Reason))
		fmt.Fprintln(w)
		for _, line := range strings.Split(s.Message, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		fmt.Fprintf(w, "    %s\n\n", output.StyleMuted.Render(fmt.Sprintf("(%d/%d)", suggest.Length(s.Message), suggest.MaxMessageLength)))
	}
}
