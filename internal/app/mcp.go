package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server for use with AI coding assistants",
	Long: `Start a Model Context Protocol stdio server. The server exposes these tools:

  save_context  Record what happened in the current session
  get_context   Show the saved session context
  suggest       Ranked post suggestions for the session
  tweet         Post a single update to X
  thread        Post a thread to X
  setup_auth    Authorize posting with a PIN from X
  configure     Set language and suggestion types
  status        Check configuration and authorization

and the prompts retro, quick, and suggest.

Add to your MCP configuration:
  {"mcpServers":{"bip":{"command":"bip","args":["mcp"]}}}

Logs go to stderr; stdout carries only protocol messages.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := mcp.NewServer(mcp.Deps{
		Version:    appVersion,
		StorageDir: svc.cfg.StorageDir,
		Engine:     svc.engine,
		Contexts:   svc.db,
		Prefs:      svc.prefs,
		Publisher:  svc.publisher,
		Auth:       svc.flow,
		Status:     svc.status,
		Logger:     svc.logger,
	})
	svc.logger.Debug("mcp server starting", "storage_dir", svc.cfg.StorageDir)
	return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
}
