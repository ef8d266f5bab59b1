package app

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/auth"
	"github.com/blackwell-systems/bip/internal/config"
	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether the bip setup is healthy",
	Long: `Run a series of local health checks: storage, database, git, app and
account credentials, and the watch daemon. Prints a pass/fail line for each
check and a summary of how many checks passed. No network calls are made;
use 'bip status' to verify credentials against X.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	applyColor(cfg)

	checks := []doctorCheck{
		checkStorageDir(cfg.StorageDir),
		checkDatabase(cfg.DBPath()),
		checkGit(),
		checkAppCredentials(cfg),
		checkAccountCredentials(auth.NewStore(cfg.StorageDir, cfg.Auth.UseKeyring, nil)),
		checkWatchDaemon(cfg.StorageDir),
		checkConfigFile(cfg.File),
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	fmt.Fprintln(w, output.Section("Doctor"))
	fmt.Fprintln(w)
	for _, c := range checks {
		renderDoctorCheck(w, c)
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Fprintf(w, " %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

// renderDoctorCheck prints a single check result line.
func renderDoctorCheck(w io.Writer, c doctorCheck) {
	var indicator string
	if c.Passed {
		indicator = output.StyleSuccess.Render("✓")
	} else {
		indicator = output.StyleWarning.Render("✗")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Fprintf(w, "  %s  %-30s %s\n", indicator, label, detail)
}

// checkStorageDir verifies the storage directory exists (creating it if
// needed) and is writable.
func checkStorageDir(dir string) doctorCheck {
	const name = "Storage directory"
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return doctorCheck{Name: name, Message: fmt.Sprintf("not writable: %s", dir)}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return doctorCheck{Name: name, Passed: true, Message: dir}
}

// checkDatabase opens the database, which also applies migrations.
func checkDatabase(dbPath string) doctorCheck {
	const name = "SQLite database"
	db, err := store.Open(dbPath)
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	defer db.Close()
	has, err := db.HasContext()
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	msg := dbPath
	if !has {
		msg += " (no session context yet)"
	}
	return doctorCheck{Name: name, Passed: true, Message: msg}
}

// checkGit verifies git is on PATH for import-git and watch.
func checkGit() doctorCheck {
	path, err := exec.LookPath("git")
	if err != nil {
		return doctorCheck{Name: "git", Message: "not found on PATH (needed for 'context import-git' and 'watch')"}
	}
	return doctorCheck{Name: "git", Passed: true, Message: path}
}

// checkAppCredentials verifies the X app key and secret are configured.
func checkAppCredentials(cfg *config.Config) doctorCheck {
	const name = "App credentials"
	if !cfg.AppConfigured() {
		return doctorCheck{Name: name, Message: "TWITTER_APP_KEY / TWITTER_APP_SECRET are not set"}
	}
	key := cfg.Twitter.AppKey
	return doctorCheck{Name: name, Passed: true, Message: fmt.Sprintf("app key set (%s...)", key[:min(4, len(key))])}
}

// checkAccountCredentials verifies complete account credentials are stored.
func checkAccountCredentials(s auth.Store) doctorCheck {
	const name = "Account credentials"
	creds, err := s.Get()
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	if !creds.Complete() {
		return doctorCheck{Name: name, Message: fmt.Sprintf("none in %s (run 'bip auth')", s.Location())}
	}
	msg := s.Location()
	if creds.Username != "" {
		msg = fmt.Sprintf("@%s in %s", creds.Username, s.Location())
	}
	return doctorCheck{Name: name, Passed: true, Message: msg}
}

// checkWatchDaemon reports whether the watch daemon is running. Not
// running is not a failure.
func checkWatchDaemon(storageDir string) doctorCheck {
	const name = "Watch daemon"
	pid, err := readPID(storageDir)
	if err != nil {
		return doctorCheck{Name: name, Passed: true, Message: "not running"}
	}
	if !processExists(pid) {
		return doctorCheck{Name: name, Message: fmt.Sprintf("PID %d is not running (stale PID file)", pid)}
	}
	return doctorCheck{Name: name, Passed: true, Message: fmt.Sprintf("running (PID %d)", pid)}
}

// checkConfigFile reports which config file was read.
func checkConfigFile(file string) doctorCheck {
	if file == "" {
		return doctorCheck{Name: "Config file", Passed: true, Message: "none (using defaults and environment)"}
	}
	return doctorCheck{Name: "Config file", Passed: true, Message: filepath.Clean(file)}
}
