package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/engine"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// Engine is the subset of the threat correlator used by the HTTP layer.
type Engine interface {
	Correlate(ctx context.Context, vulns []domain.CVE, threats []domain.ThreatObject) []domain.ThreatCorrelation
	ScoreAssets(ctx context.Context, assets []domain.Asset, indicators []domain.ThreatIndicator) []domain.AssetRisk
	AnalyzeSBOM(ctx context.Context, doc sbom.Document, indicators []domain.ThreatIndicator) domain.SBOMThreatAnalysis
	PredictExploitLikelihood(ctx context.Context, cve domain.CVE, threats []domain.ThreatObject) float64
	ClearCache()
	CacheStats() engine.CacheStats
}

// CVELookup resolves CVE identifiers against the catalogue.
type CVELookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.CVE, error)
}

var _ Engine = (*engine.ThreatCorrelator)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
