package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/fetch"
	"github.com/abelbrown/pulse/internal/metrics"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [subreddit...]",
	Short: "Acquire the newest posts of subreddits",
	Long: `Fetches the newest posts of each subreddit, skips posts already seen,
records new ones in the post database and appends them to the file named
by fetch.jsonl.

Without arguments the subreddits listed under fetch.subreddits are used.`,
	RunE: runFetch,
}

var fetchLimit int

func init() {
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "n", 0, "posts per subreddit (default from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	subs := args
	if len(subs) == 0 {
		subs = cfg.Fetch.Subreddits
	}
	if len(subs) == 0 {
		return fmt.Errorf("no subreddits given and fetch.subreddits is empty")
	}
	limit := fetchLimit
	if limit <= 0 {
		limit = cfg.Fetch.Limit
	}

	st, err := openStore(cfg.Fetch.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	acq := fetch.NewAcquirer(newFetcher(cfg), st, cfg.Fetch.JSONL, metrics.New(), nil)
	posts, err := acq.Acquire(cmd.Context(), subs, limit)

	out := cmd.OutOrStdout()
	for _, p := range posts {
		fmt.Fprintf(out, "r/%-20s %-10s %s\n", p.Subreddit, p.ID, p.Title)
	}
	fmt.Fprintf(out, "%d new posts appended to %s\n", len(posts), cfg.Fetch.JSONL)
	return err
}
