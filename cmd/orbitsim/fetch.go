package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/config"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/spf13/cobra"
)

var fetchURLs struct {
	source string
	extra  []string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download TLE data into the local cache",
	Long: `Downloads the configured source (and any extra sources), checks that it
parses, and writes it to the cache directory. The oldest cached files
beyond tle.max_files are removed.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURLs.source, "url", "", "primary source URL (default from config)")
	fetchCmd.Flags().StringSliceVar(&fetchURLs.extra, "extra", nil, "additional source URLs")
}

func runFetch(cmd *cobra.Command, args []string) error {
	tc := cfg.TLE
	if fetchURLs.source != "" {
		tc.SourceURL = fetchURLs.source
	}
	if cmd.Flags().Changed("extra") {
		tc.ExtraURLs = fetchURLs.extra
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := tle.NewCache(tc.CacheDir, tc.MaxFiles)
	path, res, err := fetchCatalog(ctx, tc, cache, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d satellites, %d skipped\n", path, len(res.Elements), len(res.Failures))
	return nil
}

// fetchCatalog downloads, validates and caches TLE data. Data that yields no
// element sets is not cached.
func fetchCatalog(ctx context.Context, tc config.TLEConfig, cache *tle.Cache, logger *slog.Logger) (string, tle.LoadResult, error) {
	fetcher := tle.NewFetcher(tc.SourceURL, logger, tc.ExtraURLs...)
	logger.Info("fetching TLE data", "source_url", fetcher.SourceURL(), "extra_urls", tc.ExtraURLs)

	data, err := fetcher.Fetch(ctx)
	if err != nil {
		return "", tle.LoadResult{}, err
	}
	res, err := tle.ParseString(string(data), logger)
	if err != nil {
		return "", tle.LoadResult{}, fmt.Errorf("parsing fetched data: %w", err)
	}
	path, err := cache.Write(data, time.Now())
	if err != nil {
		return "", res, fmt.Errorf("caching TLE data: %w", err)
	}
	return path, res, nil
}
