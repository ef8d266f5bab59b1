package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/config"
	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/watcher"
)

// minWatchInterval keeps the poll from hammering git.
const minWatchInterval = 10 * time.Second

var (
	watchDaemon   bool
	watchInterval string
	watchStop     bool
	watchQuiet    bool
	watchRepo     string
	watchNotify   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Record new commits as they land and suggest a post for each",
	Long: `Poll a git repository for new commits. Each new commit is added to the
current session context, and the best post suggestion for it is shown and
sent as a desktop notification.

Examples:
  bip watch                       # watch the current directory (ctrl-c to stop)
  bip watch --repo ~/src/app      # watch another repository
  bip watch --interval 30s        # check every 30 seconds (default: 1m)
  bip watch --daemon              # run in background, write PID file
  bip watch --stop                # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "1m", "Check interval as duration string (e.g. 30s, 5m)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().StringVar(&watchRepo, "repo", ".", "Path to the git repository")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", true, "Send desktop notifications")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath(storageDir string) string {
	return filepath.Join(storageDir, "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath(storageDir string) string {
	return filepath.Join(storageDir, "watch.log")
}

// parseWatchInterval validates the --interval value.
func parseWatchInterval(s string) (time.Duration, error) {
	interval, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid interval %q", s)
	}
	if interval < minWatchInterval {
		return 0, errors.Newf("interval must be at least %s, got %s", minWatchInterval, interval)
	}
	return interval, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return errors.Wrap(err, "loading config")
		}
		return stopDaemon(cmd.OutOrStdout(), cfg.StorageDir)
	}

	interval, err := parseWatchInterval(watchInterval)
	if err != nil {
		return err
	}
	repo, err := filepath.Abs(watchRepo)
	if err != nil {
		return errors.Wrap(err, "resolving repository path")
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if watchDaemon {
		return runDaemon(cmd.Context(), svc, repo, interval)
	}
	return runForeground(cmd.Context(), cmd.OutOrStdout(), svc, repo, interval)
}

func newWatcher(svc *services, repo string, interval time.Duration, alertFn func(watcher.Alert)) *watcher.Watcher {
	return watcher.New(watcher.Config{
		Repo:     repo,
		Interval: interval,
		Contexts: svc.db,
		Engine:   svc.engine,
		Logger:   svc.logger,
	}, alertFn)
}

// runForeground runs the watcher in the foreground with live terminal output.
func runForeground(ctx context.Context, w io.Writer, svc *services, repo string, interval time.Duration) error {
	if !watchQuiet {
		fmt.Fprintf(w, "bip watching %s... (checking every %s)\n", repo, interval)
	}

	alertFn := func(a watcher.Alert) {
		if watchNotify {
			_ = watcher.Notify(a)
		}
		if !watchQuiet {
			printAlert(w, a)
		}
	}

	wt := newWatcher(svc, repo, interval, alertFn)

	// Take the baseline and display it.
	initial, err := wt.Prime(ctx)
	if err != nil {
		return err
	}
	if !watchQuiet {
		head := "no commits yet"
		if initial.Head != "" {
			head = "HEAD " + shortHash(initial.Head)
		}
		fmt.Fprintf(w, "[%s] %s Baseline taken (%s)\n", time.Now().Format("15:04:05"), output.Check(true), head)
	}

	err = wt.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(w, "\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(ctx context.Context, svc *services, repo string, interval time.Duration) error {
	dir := svc.cfg.StorageDir
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "creating storage dir")
	}

	// Check for existing daemon.
	if pid, err := readPID(dir); err == nil {
		if processExists(pid) {
			return errors.Newf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file, remove it.
		_ = os.Remove(pidFilePath(dir))
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(dir), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return errors.Wrap(err, "writing PID file")
	}
	defer func() { _ = os.Remove(pidFilePath(dir)) }()

	logFile, err := os.OpenFile(logFilePath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening log file")
	}
	defer func() { _ = logFile.Close() }()

	writeLog(logFile, "bip watch daemon started (PID %d, repo %s, interval %s)", pid, repo, interval)

	alertFn := func(a watcher.Alert) {
		if watchNotify {
			_ = watcher.Notify(a)
		}
		writeLog(logFile, "[%s] %s: %s", a.Level, a.Title, firstLine(a.Message))
	}

	err = newWatcher(svc, repo, interval, alertFn).Run(ctx)
	if errors.Is(err, context.Canceled) {
		writeLog(logFile, "daemon stopped")
		return nil
	}
	return err
}

// readPID reads the daemon PID from the PID file.
func readPID(storageDir string) (int, error) {
	data, err := os.ReadFile(pidFilePath(storageDir))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// writeLog writes a timestamped line to the log file.
func writeLog(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(w, "[%s] %s\n", timestamp, msg)
}

// printAlert formats and prints an alert to the terminal. The message is
// a full post, so it is indented line by line.
func printAlert(w io.Writer, a watcher.Alert) {
	timestamp := a.Time.Format("15:04:05")
	fmt.Fprintf(w, "[%s] %s %s\n", timestamp, alertIcon(a.Level), a.Title)
	if a.Message == "" {
		return
	}
	for _, line := range strings.Split(a.Message, "\n") {
		fmt.Fprintf(w, "           %s\n", line)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case "warning":
		return output.StyleWarning.Render("!")
	case "info":
		return output.StyleSuccess.Render("✓")
	default:
		return " "
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
