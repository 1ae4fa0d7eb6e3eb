package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/cve"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/reporting"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/threatcorr/internal/adapters/web/server"
	"github.com/lcalzada-xor/threatcorr/internal/config"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/engine"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/risk"
	"github.com/lcalzada-xor/threatcorr/internal/telemetry"
)

// Application holds the core components of the service.
type Application struct {
	Config    *config.Config
	Engine    *engine.ThreatCorrelator
	Store     *storage.SQLiteStore
	CVERepo   *cve.SQLiteRepository
	WebServer *webserver.Server

	logger         *zap.Logger
	version        string
	shutdownTracer func(context.Context) error
}

// New creates a new Application instance and bootstraps its components.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, version string) (*Application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &Application{
		Config:  cfg,
		logger:  logger,
		version: version,
	}

	if err := app.bootstrap(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap(ctx context.Context) error {
	// 1. Telemetry
	if app.Config.Telemetry.MetricsEnabled {
		telemetry.InitMetrics()
	}
	if app.Config.Telemetry.TracingEnabled {
		shutdown, err := telemetry.InitTracer(app.version, nil)
		if err != nil {
			app.logger.Warn("Failed to init tracer", zap.Error(err))
		} else {
			app.shutdownTracer = shutdown
		}
	}

	// 2. Storage
	if err := app.initStorage(); err != nil {
		return err
	}
	if err := app.initCVECatalogue(ctx); err != nil {
		return err
	}

	// 3. Engine
	eng, err := BuildEngine(ctx, app.Config.Engine, app.CVERepo, app.logger)
	if err != nil {
		return err
	}
	app.Engine = eng

	// 4. HTTP server
	app.WebServer = webserver.NewServer(webserver.Config{
		Addr:                 app.Config.Server.Addr,
		RateLimitRequests:    app.Config.Server.RateLimitRequests,
		RateLimitWindow:      app.Config.Server.RateLimitWindow,
		ShutdownTimeout:      app.Config.Server.ShutdownTimeout,
		SlowRequestThreshold: app.Config.Server.SlowRequest,
		MetricsEnabled:       app.Config.Telemetry.MetricsEnabled,
		ServiceName:          app.Config.Logger.ServiceName,
	}, webserver.Dependencies{
		Engine:      app.Engine,
		Store:       app.Store,
		CVEs:        app.CVERepo,
		PDFExporter: reporting.NewPDFExporter(),
	}, app.logger)

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (app *Application) initStorage() error {
	path := app.Config.Storage.ResultsDBPath
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create results DB directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to init results storage: %w", err)
	}
	app.Store = store
	return nil
}

func (app *Application) initCVECatalogue(ctx context.Context) error {
	path := app.Config.Storage.CVEDBPath
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create CVE DB directory: %w", err)
	}

	repo, err := cve.NewSQLiteRepository(path)
	if err != nil {
		return fmt.Errorf("failed to open CVE catalogue: %w", err)
	}
	app.CVERepo = repo

	count, err := repo.GetTotalCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count CVE catalogue: %w", err)
	}
	lastSync, err := repo.GetLastSyncTime(ctx)
	switch {
	case errors.Is(err, cve.ErrNeverSynced):
		app.logger.Warn("CVE catalogue is empty; load it with cve_loader", zap.String("path", path))
	case err != nil:
		return fmt.Errorf("failed to read CVE catalogue sync status: %w", err)
	default:
		app.logger.Info("CVE catalogue ready",
			zap.Int("records", count),
			zap.Time("last_sync", lastSync))
	}
	return nil
}

// BuildEngine constructs the threat correlator with the configured matcher.
// repo is only consulted for the catalogue matcher and may be nil otherwise.
func BuildEngine(ctx context.Context, cfg config.EngineConfig, repo ports.CVERepository, logger *zap.Logger) (*engine.ThreatCorrelator, error) {
	var opts []engine.Option

	if cfg.Matcher == config.MatcherCatalogue {
		if repo == nil {
			return nil, fmt.Errorf("catalogue matcher requires a CVE repository")
		}
		matcher, err := cve.NewCatalogueMatcher(ctx, repo, risk.CoarseMatcher{})
		if err != nil {
			return nil, fmt.Errorf("failed to build catalogue matcher: %w", err)
		}
		opts = append(opts, engine.WithMatcher(matcher))
	}

	return engine.New(cfg, logger, opts...), nil
}

// Run serves the HTTP API until ctx is cancelled, then releases resources.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("Starting threatcorr", zap.String("version", app.version), zap.String("addr", app.Config.Server.Addr))

	runErr := app.WebServer.Run(ctx)
	if runErr != nil {
		runErr = fmt.Errorf("web server error: %w", runErr)
	}

	closeErr := app.Close(context.Background())
	return errors.Join(runErr, closeErr)
}

// Close releases storage handles and flushes traces. It is safe to call on a
// partially bootstrapped application.
func (app *Application) Close(ctx context.Context) error {
	app.logger.Info("Cleaning up resources")

	var errs []error
	if app.Store != nil {
		errs = append(errs, app.Store.Close())
		app.Store = nil
	}
	if app.CVERepo != nil {
		errs = append(errs, app.CVERepo.Close())
		app.CVERepo = nil
	}
	if app.shutdownTracer != nil {
		errs = append(errs, app.shutdownTracer(ctx))
		app.shutdownTracer = nil
	}
	return errors.Join(errs...)
}
