package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/session"
)

var logSession string

// logKinds maps each loggable kind to the context field it appends to.
var logKinds = map[string]func(c *session.Context, entry string){
	"achievement": func(c *session.Context, e string) { c.Achievements = append(c.Achievements, e) },
	"learning":    func(c *session.Context, e string) { c.Learnings = append(c.Learnings, e) },
	"challenge":   func(c *session.Context, e string) { c.Challenges = append(c.Challenges, e) },
	"file":        func(c *session.Context, e string) { c.FilesModified = appendUnique(c.FilesModified, e) },
	"command":     func(c *session.Context, e string) { c.CommandsRun = append(c.CommandsRun, e) },
	"tool":        func(c *session.Context, e string) { c.ToolsUsed = appendUnique(c.ToolsUsed, e) },
	"message":     func(c *session.Context, e string) { c.UserMessages = append(c.UserMessages, e) },
}

var logCmd = &cobra.Command{
	Use:   "log KIND TEXT...",
	Short: "Add an entry to the session context",
	Long: `Record something that happened in the current session so suggestions
can use it. KIND is one of achievement, learning, challenge, file, command,
tool, or message. A new session is started when none exists.

Examples:
  bip log achievement "Shipped the watch command"
  bip log learning "git log --numstat reports binary files as -"
  bip log file internal/app/watch.go
  bip log challenge "Flaky keychain on CI" --session 4f1c...`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logSession, "session", "", "Session context ID (default: most recent)")
	rootCmd.AddCommand(logCmd)
}

// appendUnique appends e unless it is already present.
func appendUnique(list []string, e string) []string {
	for _, v := range list {
		if v == e {
			return list
		}
	}
	return append(list, e)
}

// addLogEntry applies one log entry to c.
func addLogEntry(c *session.Context, kind, entry string) error {
	apply, ok := logKinds[kind]
	if !ok {
		return errors.Newf("unknown kind %q (want achievement, learning, challenge, file, command, tool, or message)", kind)
	}
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return errors.New("entry text is empty")
	}
	apply(c, entry)
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	kind := strings.ToLower(args[0])
	entry := strings.Join(args[1:], " ")
	if _, ok := logKinds[kind]; !ok {
		return addLogEntry(nil, kind, entry)
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	sc, err := svc.db.LoadContext(logSession)
	if err != nil {
		return errors.Wrap(err, "loading session context")
	}
	if sc == nil {
		if logSession != "" {
			return errors.Newf("no session context %s", logSession)
		}
		sc = session.New(time.Now())
	}

	if err := addLogEntry(sc, kind, entry); err != nil {
		return err
	}
	if err := svc.db.SaveContext(sc); err != nil {
		return errors.Wrap(err, "saving session context")
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), sc.Summarize())
	}
	fmt.Fprintf(cmd.OutOrStdout(), " %s Logged %s in session %s\n", output.Check(true), kind, sc.SessionID)
	return nil
}
