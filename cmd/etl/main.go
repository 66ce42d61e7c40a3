// Command etl loads historical seasons from the timing feed into a
// running service instance.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/etl"
	"github.com/Shivam-Lahoti/F1-Predictor/pkg/logger"
	"github.com/spf13/cobra"
)

// Default CLI configuration constants.
const (
	defaultBaseURL     = "http://localhost:8000"
	defaultFeedBaseURL = "https://api.jolpi.ca/ergast/f1"
	defaultCacheDir    = "feed_cache"
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 30 * time.Minute
	defaultTopN        = 10
)

var flags struct {
	baseURL  string
	feedURL  string
	cacheDir string
	season   int
	rounds   []int
	workers  int
	timeout  time.Duration
	withLaps bool
	verbose  bool
	verify   bool
	topN     int
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Load historical race data into the prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				_ = logger.SetLevelString("debug")
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.baseURL, "url", defaultBaseURL, "base URL of the service")
	root.PersistentFlags().StringVar(&flags.feedURL, "feed", defaultFeedBaseURL, "base URL of the timing feed")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", defaultCacheDir, "feed response cache directory (empty disables)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newLoadCmd())
	root.AddCommand(newSeasonsCmd())
	root.AddCommand(newVerifyCmd())
	return root
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch a season from the feed and submit it for ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
			defer cancel()

			config := buildConfig()
			if _, err := etl.Run(ctx, config); err != nil {
				return err
			}

			if flags.verify {
				return etl.Verify(ctx, config, flags.topN)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.season, "season", time.Now().Year(), "season to load")
	cmd.Flags().IntSliceVar(&flags.rounds, "rounds", nil, "rounds to load (default: whole season)")
	cmd.Flags().IntVar(&flags.workers, "workers", runtime.NumCPU()*2, "concurrent submit workers")
	cmd.Flags().BoolVar(&flags.withLaps, "with-laps", false, "also load per-lap times (slow)")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "verify the load via /stats and rankings")
	cmd.Flags().IntVar(&flags.topN, "top", defaultTopN, "rankings to show during verification")
	return cmd
}

func newSeasonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasons",
		Short: "List a season's race calendar from the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
			defer cancel()
			_, err := etl.Seasons(ctx, buildConfig())
			return err
		},
	}
	cmd.Flags().IntVar(&flags.season, "season", time.Now().Year(), "season to list")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Read back service stats and power rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
			defer cancel()
			return etl.Verify(ctx, buildConfig(), flags.topN)
		},
	}
	cmd.Flags().IntVar(&flags.topN, "top", defaultTopN, "rankings to show")
	return cmd
}

func buildConfig() *etl.Config {
	return &etl.Config{
		BaseURL:     flags.baseURL,
		FeedBaseURL: flags.feedURL,
		CacheDir:    flags.cacheDir,
		Season:      flags.season,
		Rounds:      flags.rounds,
		Workers:     flags.workers,
		Timeout:     flags.timeout,
		WithLaps:    flags.withLaps,
		Verbose:     flags.verbose,
	}
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Error(ctx, "etl failed", logger.Error(err))
		os.Exit(1)
	}
}
