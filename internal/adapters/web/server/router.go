package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/web/middleware"
)

// SetupRoutes builds the API router.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(s.logger, s.cfg.SlowRequestThreshold))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Analysis endpoints share one rate limiter
	limited := func(h http.HandlerFunc) http.Handler {
		return middleware.RateLimitMiddleware(s.limiter)(h)
	}
	api.Handle("/correlations", limited(s.AnalysisHandler.HandleCorrelate)).Methods(http.MethodPost)
	api.Handle("/assets/risk", limited(s.AnalysisHandler.HandleAssetRisk)).Methods(http.MethodPost)
	api.Handle("/sbom/analyze", limited(s.AnalysisHandler.HandleSBOM)).Methods(http.MethodPost)
	api.Handle("/exploit/predict", limited(s.AnalysisHandler.HandlePredict)).Methods(http.MethodPost)
	api.Handle("/reports/assets", limited(s.ReportHandler.HandleAssetReport)).Methods(http.MethodPost)

	// Stored results
	if s.RunHandler != nil {
		api.HandleFunc("/runs", s.RunHandler.HandleListRuns).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}/correlations", s.RunHandler.HandleRunCorrelations).Methods(http.MethodGet)
		api.HandleFunc("/assets/{id}/risk", s.RunHandler.HandleLatestAssetRisk).Methods(http.MethodGet)
	}

	// Cache administration
	api.HandleFunc("/cache/stats", s.AdminHandler.HandleCacheStats).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.AdminHandler.HandleClearCache).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	return r
}
