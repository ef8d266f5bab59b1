// Package app contains the Cobra command tree for bip.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "bip",
	Short: "Build in public: turn coding sessions into posts on X",
	Long: `bip records what happens during a coding session (files touched,
commits, achievements, learnings) and turns it into ready-to-post updates
for X. It runs as an MCP server for AI coding assistants or directly from
the command line.

Run 'bip status' to check configuration and authorization.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("bip", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  suggest     Generate ranked post suggestions for the current session")
		fmt.Println("  context     Show, save, import, or clear session context")
		fmt.Println("  configure   Set language and suggestion types")
		fmt.Println("  auth        Authorize bip to post on your X account")
		fmt.Println("  tweet       Post a single update")
		fmt.Println("  thread      Post a thread")
		fmt.Println("  history     List recent posts")
		fmt.Println("  status      Check configuration and authorization")
		fmt.Println("  mcp         Run the MCP stdio server")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.build-in-public/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}
