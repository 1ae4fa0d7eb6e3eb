package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/cve"
	"github.com/lcalzada-xor/threatcorr/internal/config"
	"github.com/lcalzada-xor/threatcorr/internal/observability"
)

type loaderOptions struct {
	configFile string
	seedFiles  []string
	feedURL    string
	dbPath     string
	force      bool
	maxAge     time.Duration
	timeout    time.Duration

	httpClient *http.Client
	now        func() time.Time
}

func newLoaderCmd() *cobra.Command {
	opts := &loaderOptions{httpClient: http.DefaultClient, now: time.Now}

	cmd := &cobra.Command{
		Use:           "cve_loader",
		Short:         "Load CVE records into the catalogue database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.seedFiles) == 0 && opts.feedURL == "" {
				return errors.New("nothing to load: pass --seed-file or --url")
			}
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.dbPath == "" {
				opts.dbPath = cfg.Storage.CVEDBPath
			}
			logger := observability.InitializeLogger(cfg.Logger)
			return runLoader(cmd.Context(), opts, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "config file (YAML)")
	f.StringSliceVar(&opts.seedFiles, "seed-file", nil, "CVE seed JSON file (repeatable)")
	f.StringVar(&opts.feedURL, "url", "", "download a JSON seed document from this URL")
	f.StringVar(&opts.dbPath, "db-path", "", "CVE database path (defaults to storage.cve_db_path)")
	f.BoolVar(&opts.force, "force", false, "load even if the catalogue was synced recently")
	f.DurationVar(&opts.maxAge, "max-age", 24*time.Hour, "skip loading when the last sync is more recent than this")
	f.DurationVar(&opts.timeout, "timeout", time.Minute, "download timeout for --url")
	return cmd
}

func runLoader(ctx context.Context, opts *loaderOptions, logger *zap.Logger) error {
	if dir := filepath.Dir(opts.dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	repo, err := cve.NewSQLiteRepository(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open CVE catalogue: %w", err)
	}
	defer repo.Close()

	logger.Info("CVE loader starting", zap.String("db", opts.dbPath))

	if !opts.force {
		last, err := repo.GetLastSyncTime(ctx)
		switch {
		case errors.Is(err, cve.ErrNeverSynced):
		case err != nil:
			logger.Warn("Could not read sync status", zap.Error(err))
		case opts.now().Sub(last) < opts.maxAge:
			logger.Info("Catalogue is recent, use --force to reload anyway", zap.Time("last_sync", last))
			return nil
		}
	}

	loader := cve.NewSeedLoader(repo, logger)
	var total cve.LoadResult

	if len(opts.seedFiles) > 0 {
		res, err := loader.LoadFromMultipleFiles(ctx, opts.seedFiles)
		if err != nil {
			return err
		}
		total.Loaded += res.Loaded
		total.Failed += res.Failed
	}

	if opts.feedURL != "" {
		res, err := loadFromURL(ctx, opts, loader)
		if err != nil {
			return err
		}
		total.Loaded += res.Loaded
		total.Failed += res.Failed
	}

	count, err := repo.GetTotalCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count CVE catalogue: %w", err)
	}
	logger.Info("CVE catalogue updated",
		zap.Int("loaded", total.Loaded),
		zap.Int("failed", total.Failed),
		zap.Int("total", count))
	return nil
}

func loadFromURL(ctx context.Context, opts *loaderOptions, loader *cve.SeedLoader) (cve.LoadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.feedURL, nil)
	if err != nil {
		return cve.LoadResult{}, fmt.Errorf("invalid feed URL: %w", err)
	}
	resp, err := opts.httpClient.Do(req)
	if err != nil {
		return cve.LoadResult{}, fmt.Errorf("failed to download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cve.LoadResult{}, fmt.Errorf("feed download failed: %s", resp.Status)
	}
	return loader.LoadFromReader(ctx, opts.feedURL, resp.Body)
}
