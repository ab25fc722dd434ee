package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/api"
	"github.com/liamnightingale/OrbitSim/internal/config"
	"github.com/liamnightingale/OrbitSim/internal/propagation"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog and propagation over HTTP",
	Long: `Loads the initial catalog from ORBITSIM_TLE_FILE, else the newest cached
download, else (with ORBITSIM_TLE_FETCH) a fresh download, and serves it.
The server starts without a catalog if none is available; /readyz reports
503 until one is uploaded.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := tle.NewCatalog()
	cache := tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.MaxFiles)
	if err := loadInitialCatalog(ctx, cfg, catalog, cache, logger); err != nil {
		logger.Warn("starting without a catalog", "error", err)
	}

	prop := propagation.NewPropagator(cfg.Prop, logger)
	srv := api.NewServer(api.Options{
		Addr:       addr,
		Auth:       cfg.Auth,
		TrustProxy: cfg.TrustProxy,
		Stream:     cfg.Stream,
	}, logger, catalog, prop, cache)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", addr, "auth_enabled", cfg.Auth.Enabled, "config", cfg)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// loadInitialCatalog fills catalog from the first source that yields at
// least one element set: the configured file, the newest cache entry, then
// a network fetch when enabled.
func loadInitialCatalog(ctx context.Context, c config.Config, catalog *tle.Catalog, cache *tle.Cache, logger *slog.Logger) error {
	if c.TLE.File != "" {
		res, err := tle.Load(c.TLE.File, logger)
		if err != nil {
			return fmt.Errorf("loading %s: %w", c.TLE.File, err)
		}
		ds := catalog.Replace("file", res, time.Now())
		logger.Info("loaded catalog from file", "path", c.TLE.File, "satellites", len(ds.Satellites), "skipped", len(res.Failures))
		return nil
	}

	path, ts, err := cache.Latest()
	if err == nil {
		res, err := tle.Load(path, logger)
		if err == nil {
			ds := catalog.Replace("cache", res, ts)
			logger.Info("loaded catalog from cache", "path", path, "satellites", len(ds.Satellites), "cached_at", ts.Format(time.RFC3339))
			return nil
		}
		logger.Warn("failed to parse cached TLE data", "path", path, "error", err)
	} else {
		logger.Info("no TLE cache found", "dir", cache.Dir(), "error", err)
	}

	if !c.TLE.EnableFetch {
		return errors.New("no TLE file, no usable cache and fetching disabled")
	}
	_, res, err := fetchCatalog(ctx, c.TLE, cache, logger)
	if err != nil {
		return err
	}
	ds := catalog.Replace("fetch", res, time.Now())
	logger.Info("loaded catalog from network", "satellites", len(ds.Satellites), "skipped", len(res.Failures))
	return nil
}
