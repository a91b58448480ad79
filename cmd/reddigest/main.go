package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	outputDir string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reddigest",
		Short: "Fetch, rank, and digest Reddit discussions",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&outputDir, "output-dir", "", "artifact directory (default: from config)")

	root.AddCommand(fetchCmd())
	root.AddCommand(preprocessCmd())
	root.AddCommand(digestCmd())
	root.AddCommand(postsCmd())
	root.AddCommand(windowCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func fetchCmd() *cobra.Command {
	var (
		subreddits []string
		start, end string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch raw posts for a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(subreddits, start, end, days)
		},
	}

	cmd.Flags().StringSliceVar(&subreddits, "subreddit", nil, "subreddits to fetch (default: from config)")
	cmd.Flags().StringVar(&start, "start", "", "window start (e.g. 2025-01-01 or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end")
	cmd.Flags().IntVar(&days, "days", 0, "lookback days when no explicit window is given")
	return cmd
}

func preprocessCmd() *cobra.Command {
	var (
		input    string
		maxPosts int
	)

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Rank and trim a previously fetched batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(input, maxPosts)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "raw batch file (default: <output dir>/raw_posts.json)")
	cmd.Flags().IntVar(&maxPosts, "max-posts", 0, "posts to keep (default: from config)")
	return cmd
}

func digestCmd() *cobra.Command {
	var (
		start, end string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run one full cycle: fetch, rank, summarize, store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(start, end, days)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start")
	cmd.Flags().StringVar(&end, "end", "", "window end")
	cmd.Flags().IntVar(&days, "days", 0, "lookback days when no explicit window is given")
	return cmd
}

func postsCmd() *cobra.Command {
	var (
		jsonOutput bool
		subreddit  string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Show stored posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPosts(jsonOutput, subreddit, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&subreddit, "subreddit", "", "filter by subreddit")
	cmd.Flags().IntVar(&limit, "limit", 20, "max posts to show")
	return cmd
}

func windowCmd() *cobra.Command {
	var (
		start, end string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show the time window a run would cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(start, end, days)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "window start")
	cmd.Flags().StringVar(&end, "end", "", "window end")
	cmd.Flags().IntVar(&days, "days", 0, "lookback days when no explicit window is given")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
