package app

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent posts and threads",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of posts and threads to list")
	rootCmd.AddCommand(historyCmd)
}

type historyReport struct {
	Tweets  []store.TweetRecord  `json:"tweets"`
	Threads []store.ThreadRecord `json:"threads"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return errors.Newf("--limit must be positive, got %d", historyLimit)
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	var r historyReport
	if r.Tweets, err = svc.db.RecentTweets(historyLimit); err != nil {
		return errors.Wrap(err, "reading posts")
	}
	if r.Threads, err = svc.db.RecentThreads(historyLimit); err != nil {
		return errors.Wrap(err, "reading threads")
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	renderHistory(cmd.OutOrStdout(), r)
	return nil
}

func renderHistory(w io.Writer, r historyReport) {
	fmt.Fprintln(w, output.Section("Posts"))
	if len(r.Tweets) == 0 {
		fmt.Fprintln(w, " Nothing posted yet.")
	} else {
		tbl := output.NewTable("Posted", "Message", "URL")
		for _, t := range r.Tweets {
			tbl.AddRow(t.PostedAt.Local().Format(time.DateTime), output.Truncate(firstLine(t.Message), 40), t.URL)
		}
		fmt.Fprint(w, tbl.Render())
	}

	fmt.Fprintln(w, output.Section("Threads"))
	if len(r.Threads) == 0 {
		fmt.Fprintln(w, " No threads yet.")
		return
	}
	tbl := output.NewTable("Posted", "Posts", "Opening", "URL")
	for _, t := range r.Threads {
		opening, url := "", ""
		if len(t.Messages) > 0 {
			opening = firstLine(t.Messages[0])
		}
		if len(t.URLs) > 0 {
			url = t.URLs[0]
		}
		tbl.AddRow(t.PostedAt.Local().Format(time.DateTime), fmt.Sprint(len(t.Messages)), output.Truncate(opening, 40), url)
	}
	fmt.Fprint(w, tbl.Render())
}
