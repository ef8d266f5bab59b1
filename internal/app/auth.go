package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blackwell-systems/bip/internal/output"
)

var authNoBrowser bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize bip to post on your X account",
	Long: `Start the PIN-based OAuth flow: bip opens the X authorization page,
you approve the app, and paste the PIN X shows you. Credentials are stored
in the system keychain, or in auth.json in the storage directory when no
keychain is available.

The app key and secret come from TWITTER_APP_KEY and TWITTER_APP_SECRET
(or twitter.app_key / twitter.app_secret in the config file).`,
	RunE: runAuth,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored X credentials",
	RunE:  runAuthLogout,
}

func init() {
	authCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the authorization URL without opening a browser")
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

// readPIN reads one line from r. The prompt is shown only when stdin is a
// terminal so piped input stays quiet.
func readPIN(r io.Reader, w io.Writer) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, " Enter the PIN from X: ")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "reading PIN")
	}
	return strings.TrimSpace(line), nil
}

func runAuth(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if authNoBrowser {
		svc.flow.DisableBrowser()
	}

	hs, err := svc.flow.Start(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, output.Section("Authorize bip on X"))
	if hs.BrowserOpened {
		fmt.Fprintln(w, " Your browser was opened at:")
	} else {
		fmt.Fprintln(w, " Open this URL in your browser:")
	}
	fmt.Fprintf(w, " %s\n\n", output.StyleBold.Render(hs.AuthURL))

	pin, err := readPIN(cmd.InOrStdin(), w)
	if err != nil {
		return err
	}

	creds, err := svc.flow.Complete(cmd.Context(), hs.ID, pin)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(w, map[string]string{"username": creds.Username, "stored_in": svc.creds.Location()})
	}
	fmt.Fprintf(w, "\n %s Authorized as @%s\n", output.Check(true), creds.Username)
	fmt.Fprintln(w, " "+output.KeyValue("Credentials", svc.creds.Location()))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.creds.Clear(); err != nil {
		return errors.Wrap(err, "removing credentials")
	}
	fmt.Fprintf(cmd.OutOrStdout(), " %s Credentials removed from %s\n", output.Check(true), svc.creds.Location())
	return nil
}
