package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/session"
)

var sessionsFlagLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List and inspect saved session contexts",
	Long: `Browse saved session contexts, most recently updated first, with the
confidence that each is worth posting about.

Examples:
  bip sessions              # recent sessions
  bip sessions --limit 5    # top 5
  bip sessions 4f1c         # inspect a single session by ID prefix`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsFlagLimit, "limit", 15, "Maximum sessions to display")
	rootCmd.AddCommand(sessionsCmd)
}

// sessionRow is one line of the sessions listing.
type sessionRow struct {
	SessionID   string          `json:"session_id"`
	StartTime   time.Time       `json:"start_time"`
	LastUpdated time.Time       `json:"last_updated"`
	Confidence  float64         `json:"confidence"`
	Summary     session.Summary `json:"summary"`
}

// findByPrefix returns the single context whose ID starts with prefix.
func findByPrefix(all []*session.Context, prefix string) (*session.Context, error) {
	var match *session.Context
	for _, c := range all {
		if !strings.HasPrefix(c.SessionID, prefix) {
			continue
		}
		if match != nil {
			return nil, errors.Newf("session prefix %q is ambiguous", prefix)
		}
		match = c
	}
	if match == nil {
		return nil, errors.Newf("no session matches %q", prefix)
	}
	return match, nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	w := cmd.OutOrStdout()

	if len(args) == 1 {
		all, err := svc.db.ListContexts(0)
		if err != nil {
			return err
		}
		sc, err := findByPrefix(all, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(w, sc)
		}
		renderContext(w, sc)
		fmt.Fprintln(w, " "+output.KeyValue("Confidence", output.ConfidenceBar(svc.engine.ScoreConfidence(sc), 10)))
		return nil
	}

	list, err := svc.db.ListContexts(sessionsFlagLimit)
	if err != nil {
		return err
	}
	rows := make([]sessionRow, 0, len(list))
	for _, sc := range list {
		rows = append(rows, sessionRow{
			SessionID:   sc.SessionID,
			StartTime:   sc.StartTime,
			LastUpdated: sc.LastUpdated,
			Confidence:  svc.engine.ScoreConfidence(sc),
			Summary:     sc.Summarize(),
		})
	}

	if flagJSON {
		return writeJSON(w, rows)
	}
	renderSessions(w, rows)
	return nil
}

func renderSessions(w io.Writer, rows []sessionRow) {
	fmt.Fprintln(w, output.Section("Sessions"))
	if len(rows) == 0 {
		fmt.Fprintln(w, " No session context saved.")
		return
	}
	tbl := output.NewTable("ID", "Updated", "Files", "Commits", "Wins", "Learnings", "Confidence")
	for _, r := range rows {
		tbl.AddRow(
			shortHash(r.SessionID),
			r.LastUpdated.Local().Format(time.DateTime),
			fmt.Sprint(r.Summary.FilesModified),
			fmt.Sprint(r.Summary.Commits),
			fmt.Sprint(r.Summary.Achievements),
			fmt.Sprint(r.Summary.Learnings),
			fmt.Sprintf("%.0f%%", r.Confidence*100),
		)
	}
	fmt.Fprint(w, tbl.Render())
}
