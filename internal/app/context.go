package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/gitlog"
	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/session"
)

var (
	contextID      string
	contextFile    string
	contextFormat  string
	importRepo     string
	importCount    int
	importNewEntry bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show, save, import, or clear session context",
	Long: `Manage the session context that suggestions are generated from.

  show        Print the saved context (most recent by default)
  save        Save a context from a JSON or YAML file (or stdin with --file -)
  import-git  Add recent commits from a git repository to the context
  clear       Delete every saved context`,
}

var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved session context",
	RunE:  runContextShow,
}

var contextSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a session context from a JSON or YAML file",
	RunE:  runContextSave,
}

var contextImportCmd = &cobra.Command{
	Use:   "import-git",
	Short: "Add recent commits from a git repository to the session context",
	RunE:  runContextImport,
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved session context",
	RunE:  runContextClear,
}

func init() {
	contextShowCmd.Flags().StringVar(&contextID, "context-id", "", "Session context ID (default: most recent)")

	contextSaveCmd.Flags().StringVar(&contextFile, "file", "", "Context file, or - for stdin (required)")
	contextSaveCmd.Flags().StringVar(&contextFormat, "format", "", "Input format: json or yaml (default: from the file extension, else json)")
	_ = contextSaveCmd.MarkFlagRequired("file")

	contextImportCmd.Flags().StringVar(&importRepo, "repo", ".", "Path to the git repository")
	contextImportCmd.Flags().IntVar(&importCount, "n", 10, "Number of recent commits to read")
	contextImportCmd.Flags().BoolVar(&importNewEntry, "new", false, "Start a new session context instead of extending the latest")

	contextCmd.AddCommand(contextShowCmd, contextSaveCmd, contextImportCmd, contextClearCmd)
	rootCmd.AddCommand(contextCmd)
}

func runContextShow(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	sc, err := svc.db.LoadContext(contextID)
	if err != nil {
		return errors.Wrap(err, "loading session context")
	}
	w := cmd.OutOrStdout()
	if sc == nil {
		if flagJSON {
			return writeJSON(w, nil)
		}
		fmt.Fprintln(w, " No session context saved.")
		return nil
	}
	if flagJSON {
		return writeJSON(w, sc)
	}
	renderContext(w, sc)
	return nil
}

// decodeContextFile picks the decoder from format, then the extension.
func decodeContextFile(data []byte, name, format string) (*session.Context, []string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch format {
	case "json":
		return session.Decode(data)
	case "yaml":
		return session.DecodeYAML(data)
	default:
		return nil, nil, errors.Newf("unknown format %q (want json or yaml)", format)
	}
}

func runContextSave(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if contextFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(contextFile)
	}
	if err != nil {
		return errors.Wrap(err, "reading context")
	}

	sc, ignored, err := decodeContextFile(data, contextFile, contextFormat)
	if err != nil {
		return errors.Wrap(err, "decoding context")
	}
	sc.Normalize(time.Now())

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.db.SaveContext(sc); err != nil {
		return errors.Wrap(err, "saving session context")
	}
	for _, field := range ignored {
		svc.logger.Warn("ignored malformed context field", "field", field)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, sc)
	}
	fmt.Fprintf(w, " %s Session context saved\n", output.Check(true))
	renderContext(w, sc)
	if len(ignored) > 0 {
		fmt.Fprintf(w, "\n %s\n", output.StyleWarning.Render("Ignored malformed fields: "+strings.Join(ignored, ", ")))
	}
	return nil
}

func runContextImport(cmd *cobra.Command, args []string) error {
	if importCount <= 0 {
		return errors.Newf("--n must be positive, got %d", importCount)
	}

	commits, err := gitlog.ReadRecent(cmd.Context(), importRepo, importCount)
	if err != nil {
		return err
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	var sc *session.Context
	if !importNewEntry {
		if sc, err = svc.db.LoadContext(""); err != nil {
			return errors.Wrap(err, "loading session context")
		}
	}
	if sc == nil {
		sc = session.New(time.Now())
	}

	before := len(sc.Commits)
	sc.Commits = gitlog.Merge(sc.Commits, commits)
	added := len(sc.Commits) - before
	if err := svc.db.SaveContext(sc); err != nil {
		return errors.Wrap(err, "saving session context")
	}
	svc.logger.Debug("imported commits", "repo", importRepo, "read", len(commits), "added", added)

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, sc)
	}
	fmt.Fprintf(w, " %s Imported %d new commit(s) into session %s\n", output.Check(true), added, sc.SessionID)
	if c, ok := sc.LatestCommit(); ok {
		fmt.Fprintln(w, output.Section("Latest commit"))
		for _, line := range strings.Split(gitlog.FormatCommitPost(c), "\n") {
			fmt.Fprintf(w, " %s\n", line)
		}
		for _, kc := range gitlog.KeyChanges(c) {
			fmt.Fprintf(w, " %s %s\n", output.StyleMuted.Render("•"), kc)
		}
	}
	return nil
}

func runContextClear(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.db.ClearContexts()
	if err != nil {
		return errors.Wrap(err, "clearing session contexts")
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), " Deleted %d session context(s).\n", n)
	return nil
}

func renderContext(w io.Writer, sc *session.Context) {
	sum := sc.Summarize()
	fmt.Fprintln(w, output.Section("Session "+sc.SessionID))
	fmt.Fprintln(w, " "+output.KeyValue("Started", sc.StartTime.Local().Format(time.RFC1123)))
	if !sc.LastUpdated.IsZero() {
		fmt.Fprintln(w, " "+output.KeyValue("Last updated", sc.LastUpdated.Local().Format(time.RFC1123)))
	}

	tbl := output.NewTable("Signal", "Count")
	tbl.AddRow("Files modified", fmt.Sprint(sum.FilesModified))
	tbl.AddRow("Commands run", fmt.Sprint(sum.CommandsRun))
	tbl.AddRow("Tools used", fmt.Sprint(sum.ToolsUsed))
	tbl.AddRow("User messages", fmt.Sprint(sum.UserMessages))
	tbl.AddRow("Commits", fmt.Sprint(sum.Commits))
	tbl.AddRow("Achievements", fmt.Sprint(sum.Achievements))
	tbl.AddRow("Challenges", fmt.Sprint(sum.Challenges))
	tbl.AddRow("Learnings", fmt.Sprint(sum.Learnings))
	fmt.Fprintln(w)
	fmt.Fprint(w, tbl.Render())
}
