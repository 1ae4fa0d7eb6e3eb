package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// maxRunsLimit caps the limit query parameter of HandleListRuns.
const maxRunsLimit = 500

// RunHandler serves stored analysis results.
type RunHandler struct {
	Store  ports.ResultStore
	logger *zap.Logger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(store ports.ResultStore, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{Store: store, logger: logger.Named("api")}
}

// HandleListRuns returns the most recent runs.
func (h *RunHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.AnalysisRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleRunCorrelations returns the correlations stored under a run.
func (h *RunHandler) HandleRunCorrelations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	correlations, err := h.Store.CorrelationsForRun(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load correlations", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load correlations")
		return
	}
	if correlations == nil {
		correlations = []domain.ThreatCorrelation{}
	}
	writeJSON(w, http.StatusOK, correlations)
}

// HandleLatestAssetRisk returns the most recent stored assessment of an asset.
func (h *RunHandler) HandleLatestAssetRisk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	risk, err := h.Store.LatestAssetRisk(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load asset risk", zap.String("asset_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load asset risk")
		return
	}
	if risk == nil {
		writeError(w, http.StatusNotFound, "no risk assessment for asset "+id)
		return
	}
	writeJSON(w, http.StatusOK, risk)
}
