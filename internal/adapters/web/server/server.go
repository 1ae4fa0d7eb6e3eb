package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/reporting"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr                 string
	RateLimitRequests    int
	RateLimitWindow      time.Duration
	ShutdownTimeout      time.Duration
	SlowRequestThreshold time.Duration
	MetricsEnabled       bool
	ServiceName          string
}

// Dependencies are the collaborators served over HTTP. Store and CVEs are optional.
type Dependencies struct {
	Engine      handlers.Engine
	Store       ports.ResultStore
	CVEs        handlers.CVELookup
	PDFExporter *reporting.PDFExporter
}

// Server handles HTTP connections.
type Server struct {
	AnalysisHandler *handlers.AnalysisHandler
	RunHandler      *handlers.RunHandler
	ReportHandler   *handlers.ReportHandler
	AdminHandler    *handlers.AdminHandler

	cfg     Config
	limiter *middleware.RateLimiter
	logger  *zap.Logger
	srv     *http.Server
}

// NewServer creates a new web server.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 60
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "threatcorr"
	}
	exporter := deps.PDFExporter
	if exporter == nil {
		exporter = reporting.NewPDFExporter()
	}
	logger = logger.Named("http")

	s := &Server{
		AnalysisHandler: handlers.NewAnalysisHandler(deps.Engine, deps.Store, deps.CVEs, logger),
		ReportHandler:   handlers.NewReportHandler(deps.Engine, exporter, cfg.ServiceName, logger),
		AdminHandler:    handlers.NewAdminHandler(deps.Engine),
		cfg:             cfg,
		limiter:         middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		logger:          logger,
	}
	if deps.Store != nil {
		s.RunHandler = handlers.NewRunHandler(deps.Store, logger)
	}
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), s.cfg.ServiceName+"-api")
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		shutdownErr <- s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Web server listening", zap.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		s.logger.Error("Web server shutdown error", zap.Error(err))
		return err
	}
	return nil
}
