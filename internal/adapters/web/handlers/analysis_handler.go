package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
)

// AnalysisHandler exposes the engine operations.
type AnalysisHandler struct {
	Engine Engine
	Store  ports.ResultStore // optional
	CVEs   CVELookup         // optional
	logger *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler. store and cves may be nil.
func NewAnalysisHandler(eng Engine, store ports.ResultStore, cves CVELookup, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{
		Engine: eng,
		Store:  store,
		CVEs:   cves,
		logger: logger.Named("api"),
	}
}

type correlateRequest struct {
	Vulnerabilities []domain.CVE          `json:"vulnerabilities"`
	Threats         []domain.ThreatObject `json:"threats"`
	CVEIDs          []string              `json:"cve_ids"`
}

type correlateResponse struct {
	RunID        string                     `json:"run_id,omitempty"`
	Correlations []domain.ThreatCorrelation `json:"correlations"`
}

// HandleCorrelate correlates inline and catalogue CVEs with threat objects.
func (h *AnalysisHandler) HandleCorrelate(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vulns, err := domain.NewCVEs(req.Vulnerabilities)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.CVEIDs) > 0 {
		if h.CVEs == nil {
			writeError(w, http.StatusBadRequest, "cve_ids require a CVE catalogue")
			return
		}
		found, err := h.CVEs.FindByIDs(r.Context(), req.CVEIDs)
		if err != nil {
			h.logger.Error("CVE catalogue lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "CVE catalogue lookup failed")
			return
		}
		vulns = mergeCVEs(vulns, found)
	}

	results := h.Engine.Correlate(r.Context(), vulns, domain.NormalizeThreatObjects(req.Threats))

	resp := correlateResponse{Correlations: results}
	if h.Store != nil {
		if run, err := h.Store.SaveCorrelations(r.Context(), results); err != nil {
			h.logger.Warn("Failed to persist correlations", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// mergeCVEs appends catalogue records whose ids are not already present inline.
func mergeCVEs(inline, catalogue []domain.CVE) []domain.CVE {
	seen := make(map[string]bool, len(inline))
	for _, c := range inline {
		seen[c.ID] = true
	}
	for _, c := range catalogue {
		if !seen[c.ID] {
			seen[c.ID] = true
			inline = append(inline, c)
		}
	}
	return inline
}

type assetRiskRequest struct {
	Assets     []domain.Asset           `json:"assets"`
	Indicators []domain.ThreatIndicator `json:"indicators"`
}

type assetRiskResponse struct {
	RunID string             `json:"run_id,omitempty"`
	Risks []domain.AssetRisk `json:"risks"`
}

// decodeAssetRisk parses and validates an asset risk request.
func decodeAssetRisk(w http.ResponseWriter, r *http.Request) ([]domain.Asset, []domain.ThreatIndicator, bool) {
	var req assetRiskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	assets, err := domain.NewAssets(req.Assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	indicators, err := domain.NewThreatIndicators(req.Indicators)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	return assets, indicators, true
}

// HandleAssetRisk scores assets against threat indicators.
func (h *AnalysisHandler) HandleAssetRisk(w http.ResponseWriter, r *http.Request) {
	assets, indicators, ok := decodeAssetRisk(w, r)
	if !ok {
		return
	}

	results := h.Engine.ScoreAssets(r.Context(), assets, indicators)

	resp := assetRiskResponse{Risks: results}
	if h.Store != nil {
		if run, err := h.Store.SaveAssetRisks(r.Context(), results); err != nil {
			h.logger.Warn("Failed to persist asset risks", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sbomRequest struct {
	// Document is either a JSON object or a string holding JSON or YAML.
	Document   json.RawMessage          `json:"document"`
	Indicators []domain.ThreatIndicator `json:"indicators"`
}

type sbomResponse struct {
	RunID string `json:"run_id,omitempty"`
	domain.SBOMThreatAnalysis
}

// HandleSBOM analyzes an SBOM document against threat indicators.
func (h *AnalysisHandler) HandleSBOM(w http.ResponseWriter, r *http.Request) {
	var req sbomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := parseSBOMField(req.Document)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	indicators, err := domain.NewThreatIndicators(req.Indicators)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis := h.Engine.AnalyzeSBOM(r.Context(), doc, indicators)

	resp := sbomResponse{SBOMThreatAnalysis: analysis}
	if h.Store != nil {
		if run, err := h.Store.SaveSBOMAnalysis(r.Context(), analysis); err != nil {
			h.logger.Warn("Failed to persist SBOM analysis", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSBOMField(raw json.RawMessage) (sbom.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return sbom.Parse([]byte(text))
	}
	if bytes.Equal(raw, []byte("null")) {
		raw = nil
	}
	return sbom.Parse(raw)
}

type predictRequest struct {
	CVE     domain.CVE            `json:"cve"`
	Threats []domain.ThreatObject `json:"threats"`
}

type predictResponse struct {
	CVEID      string  `json:"cve_id"`
	Likelihood float64 `json:"likelihood"`
}

// HandlePredict estimates the exploitation likelihood of a CVE.
func (h *AnalysisHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cve, err := domain.NewCVE(req.CVE)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	likelihood := h.Engine.PredictExploitLikelihood(r.Context(), cve, domain.NormalizeThreatObjects(req.Threats))
	writeJSON(w, http.StatusOK, predictResponse{CVEID: cve.ID, Likelihood: likelihood})
}
