package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
)

var tweetCmd = &cobra.Command{
	Use:   "tweet MESSAGE...",
	Short: "Post a single update to X",
	Long: `Post one update. Arguments are joined with spaces; the result must be
at most 280 characters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTweet,
}

func init() {
	rootCmd.AddCommand(tweetCmd)
}

func runTweet(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	post, err := svc.publisher.Tweet(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), post)
	}
	fmt.Fprintf(cmd.OutOrStdout(), " %s Posted %s\n", output.Check(true), post.URL)
	return nil
}
