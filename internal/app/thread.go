package app

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/gitlog"
	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/twitter"
)

var (
	threadReplyTo string
	threadFromGit bool
	threadRepo    string
	threadCount   int
	threadDryRun  bool
)

var threadCmd = &cobra.Command{
	Use:   "thread [MESSAGE...]",
	Short: "Post a thread to X",
	Long: `Post each argument as one post of a thread, in order. Every post must
be at most 280 characters; nothing is sent if any of them is too long.

With --from-git, the thread is built from the repository's recent commits
instead: an overview post followed by one post per commit (up to three).
Add --dry-run to print the posts without sending them.

With --reply-to, the first post replies to an existing post.`,
	RunE: runThread,
}

func init() {
	threadCmd.Flags().StringVar(&threadReplyTo, "reply-to", "", "ID of the post the thread replies to")
	threadCmd.Flags().BoolVar(&threadFromGit, "from-git", false, "Build the thread from recent git commits")
	threadCmd.Flags().StringVar(&threadRepo, "repo", ".", "Repository to read with --from-git")
	threadCmd.Flags().IntVar(&threadCount, "n", 5, "Number of recent commits to summarize with --from-git")
	threadCmd.Flags().BoolVar(&threadDryRun, "dry-run", false, "Print the posts instead of publishing them")
	rootCmd.AddCommand(threadCmd)
}

// threadTexts returns the posts to publish, from args or from git history.
func threadTexts(cmd *cobra.Command, args []string) ([]string, error) {
	if !threadFromGit {
		if len(args) == 0 {
			return nil, errors.New("thread needs at least one message, or --from-git")
		}
		return args, nil
	}
	if len(args) > 0 {
		return nil, errors.New("--from-git builds the posts itself; drop the messages")
	}
	if threadCount < 1 {
		return nil, errors.Newf("--n must be at least 1, got %d", threadCount)
	}
	commits, err := gitlog.ReadRecent(cmd.Context(), threadRepo, threadCount)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, errors.Newf("no commits found in %s", threadRepo)
	}
	return gitlog.SummarizeCommits(commits), nil
}

func runThread(cmd *cobra.Command, args []string) error {
	texts, err := threadTexts(cmd, args)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if threadDryRun {
		if flagJSON {
			return writeJSON(w, texts)
		}
		for i, text := range texts {
			fmt.Fprintln(w, output.Section(fmt.Sprintf("Post %d/%d", i+1, len(texts))))
			fmt.Fprintln(w, text)
			fmt.Fprintln(w)
		}
		return nil
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	thread, err := svc.publisher.Thread(cmd.Context(), texts, threadReplyTo)
	if err != nil {
		if len(thread.Posts) > 0 {
			fmt.Fprintf(w, " %s Posted %d of %d before failing:\n", output.StyleWarning.Render("!"), len(thread.Posts), len(texts))
			printThread(cmd, thread)
		}
		return err
	}

	if flagJSON {
		return writeJSON(w, thread)
	}
	fmt.Fprintf(w, " %s Thread posted (%d posts)\n", output.Check(true), len(thread.Posts))
	printThread(cmd, thread)
	return nil
}

func printThread(cmd *cobra.Command, thread twitter.Thread) {
	for i, u := range thread.URLs() {
		fmt.Fprintf(cmd.OutOrStdout(), "   %d. %s\n", i+1, u)
	}
}
