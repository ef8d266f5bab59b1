package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check configuration and authorization",
	Long: `Show where bip keeps its data, whether the X app credentials are
configured, and whether the stored account credentials still work.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	r, err := svc.status(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	renderStatus(cmd.OutOrStdout(), r)
	return nil
}

func renderStatus(w io.Writer, r status.Report) {
	fmt.Fprintln(w, output.Section("bip "+r.Version))
	fmt.Fprintln(w, " "+output.KeyValue("Storage", r.StorageDir))
	fmt.Fprintln(w, " "+output.KeyValue("Database", r.Database))
	fmt.Fprintln(w, " "+output.KeyValue("Language", r.Language))
	fmt.Fprintln(w, " "+output.KeyValue("Session context", output.Check(r.HasContext)))

	fmt.Fprintln(w, output.Section("X account"))
	fmt.Fprintln(w, " "+output.KeyValue("App credentials", output.Check(r.AppConfigured)))
	fmt.Fprintln(w, " "+output.KeyValue("Credentials", r.CredentialsLocation))
	switch {
	case r.Authenticated:
		fmt.Fprintln(w, " "+output.KeyValue("Authorized", fmt.Sprintf("%s @%s (%s)", output.Check(true), r.Username, r.Name)))
	case r.AuthError != "":
		fmt.Fprintln(w, " "+output.KeyValue("Authorized", output.Check(false)+" "+output.StyleError.Render(r.AuthError)))
	default:
		fmt.Fprintln(w, " "+output.KeyValue("Authorized", output.Check(false)+" run 'bip auth'"))
	}
	if r.PendingAuth > 0 {
		fmt.Fprintln(w, " "+output.KeyValue("Pending authorizations", fmt.Sprint(r.PendingAuth)))
	}
	if r.LastPostURL != "" {
		fmt.Fprintln(w, " "+output.KeyValue("Last post", r.LastPostURL))
	}
	if !r.AppConfigured {
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.StyleWarning.Render(" Set TWITTER_APP_KEY and TWITTER_APP_SECRET to enable posting."))
	}
}
