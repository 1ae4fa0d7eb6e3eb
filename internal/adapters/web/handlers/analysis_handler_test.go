package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/web"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
)

func postJSON(t *testing.T, h http.HandlerFunc, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	default:
		var err error
		body, err = json.Marshal(p)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleCorrelate(t *testing.T) {
	eng := new(web.MockEngine)
	store := new(web.MockResultStore)
	cves := new(web.MockCVELookup)
	h := handlers.NewAnalysisHandler(eng, store, cves, nil)

	catalogue := []domain.CVE{
		{ID: "CVE-2021-44228", CVSSScore: 10},
		{ID: "CVE-2024-0001", CVSSScore: 5},
	}
	cves.On("FindByIDs", mock.Anything, []string{"CVE-2021-44228", "CVE-2024-0001"}).Return(catalogue, nil)

	results := []domain.ThreatCorrelation{{CVEID: "CVE-2021-44228", ThreatIndicators: []string{"indicator--1"}, CorrelationScore: 0.9}}
	eng.On("Correlate", mock.Anything,
		mock.MatchedBy(func(v []domain.CVE) bool {
			// inline record wins over the catalogue copy
			return len(v) == 2 && v[0].ID == "CVE-2021-44228" && v[0].CVSSScore == 9.8 && v[1].ID == "CVE-2024-0001"
		}),
		mock.MatchedBy(func(th []domain.ThreatObject) bool {
			return len(th) == 1 && th[0].Type == domain.ThreatIndicatorObject
		}),
	).Return(results)
	store.On("SaveCorrelations", mock.Anything, results).Return(domain.AnalysisRun{ID: "run-1"}, nil)

	rec := postJSON(t, h.HandleCorrelate, map[string]any{
		"vulnerabilities": []map[string]any{{"id": "cve-2021-44228", "cvss_score": 9.8}},
		"threats":         []map[string]any{{"id": "indicator--1", "type": "Indicator", "description": "CVE-2021-44228 exploited"}},
		"cve_ids":         []string{"CVE-2021-44228", "CVE-2024-0001"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		RunID        string                     `json:"run_id"`
		Correlations []domain.ThreatCorrelation `json:"correlations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, results, resp.Correlations)

	eng.AssertExpectations(t)
	store.AssertExpectations(t)
	cves.AssertExpectations(t)
}

func TestHandleCorrelate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		withCVEs   bool
		lookupErr  error
		wantStatus int
	}{
		{"malformed body", "{not json", false, nil, http.StatusBadRequest},
		{"invalid cve id", map[string]any{"vulnerabilities": []map[string]any{{"id": "GHSA-1"}}}, false, nil, http.StatusBadRequest},
		{"cvss out of range", map[string]any{"vulnerabilities": []map[string]any{{"id": "CVE-2024-0001", "cvss_score": 11}}}, false, nil, http.StatusBadRequest},
		{"cve ids without catalogue", map[string]any{"cve_ids": []string{"CVE-2024-0001"}}, false, nil, http.StatusBadRequest},
		{"catalogue failure", map[string]any{"cve_ids": []string{"CVE-2024-0001"}}, true, errors.New("disk I/O error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := new(web.MockEngine)
			var lookup handlers.CVELookup
			if tt.withCVEs {
				m := new(web.MockCVELookup)
				m.On("FindByIDs", mock.Anything, mock.Anything).Return(nil, tt.lookupErr)
				lookup = m
			}
			h := handlers.NewAnalysisHandler(eng, nil, lookup, nil)

			rec := postJSON(t, h.HandleCorrelate, tt.payload)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			eng.AssertNotCalled(t, "Correlate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleCorrelate_StoreFailureStillAnswers(t *testing.T) {
	eng := new(web.MockEngine)
	store := new(web.MockResultStore)
	h := handlers.NewAnalysisHandler(eng, store, nil, nil)

	eng.On("Correlate", mock.Anything, mock.Anything, mock.Anything).Return([]domain.ThreatCorrelation{})
	store.On("SaveCorrelations", mock.Anything, mock.Anything).Return(domain.AnalysisRun{}, errors.New("database is locked"))

	rec := postJSON(t, h.HandleCorrelate, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "run_id")
	assert.Contains(t, rec.Body.String(), `"correlations":[]`)
}

func TestHandleAssetRisk(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

	risks := []domain.AssetRisk{{AssetID: "srv-1", RiskScore: 49.5, ThreatCount: 1, CriticalThreats: 1}}
	eng.On("ScoreAssets", mock.Anything,
		mock.MatchedBy(func(a []domain.Asset) bool {
			return len(a) == 1 && a[0].Type == domain.AssetServer && a[0].Criticality == domain.CriticalityHigh
		}),
		mock.MatchedBy(func(i []domain.ThreatIndicator) bool {
			return len(i) == 1 && i[0].Type == domain.IndicatorIP && i[0].Severity == domain.SeverityCritical
		}),
	).Return(risks)

	rec := postJSON(t, h.HandleAssetRisk, map[string]any{
		"assets":     []map[string]any{{"id": "srv-1", "type": "Server", "criticality": "high", "ip_addresses": []string{"10.0.0.5"}}},
		"indicators": []map[string]any{{"id": "i1", "type": "ip", "value": "10.0.0.5", "severity": "critical", "confidence": 90}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Risks []domain.AssetRisk `json:"risks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 49.5, resp.Risks[0].RiskScore)
	eng.AssertExpectations(t)
}

func TestHandleAssetRisk_Validation(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

	rec := postJSON(t, h.HandleAssetRisk, map[string]any{
		"assets": []map[string]any{{"id": "m1", "type": "mainframe", "criticality": "LOW"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "assets[0]")

	rec = postJSON(t, h.HandleAssetRisk, map[string]any{
		"indicators": []map[string]any{{"type": "ip", "severity": "LOW", "confidence": 101}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "indicators[0]")
}

func TestHandleSBOM(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantFormat sbom.Format
	}{
		{
			name:       "cyclonedx object",
			payload:    `{"document":{"bomFormat":"CycloneDX","components":[{"name":"log4j-core","version":"2.14.1"}]}}`,
			wantFormat: sbom.FormatCycloneDX,
		},
		{
			name:       "spdx yaml string",
			payload:    `{"document":"spdxVersion: SPDX-2.3\npackages:\n  - name: openssl\n    versionInfo: 1.0.2\n"}`,
			wantFormat: sbom.FormatSPDX,
		},
		{
			name:       "unknown format",
			payload:    `{"document":{"foo":"bar"}}`,
			wantFormat: sbom.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := new(web.MockEngine)
			h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

			analysis := domain.SBOMThreatAnalysis{Format: string(tt.wantFormat)}
			eng.On("AnalyzeSBOM", mock.Anything,
				mock.MatchedBy(func(d sbom.Document) bool { return d.Format() == tt.wantFormat }),
				mock.Anything,
			).Return(analysis)

			rec := postJSON(t, h.HandleSBOM, tt.payload)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"format":"`+string(tt.wantFormat)+`"`)
			eng.AssertExpectations(t)
		})
	}
}

func TestHandleSBOM_MissingDocument(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

	for _, payload := range []string{`{}`, `{"document":null}`, `{"document":"   "}`, `{"document":[1,2]}`} {
		rec := postJSON(t, h.HandleSBOM, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
	}
}

func TestHandleSBOM_PersistsRun(t *testing.T) {
	eng := new(web.MockEngine)
	store := new(web.MockResultStore)
	h := handlers.NewAnalysisHandler(eng, store, nil, nil)

	analysis := domain.SBOMThreatAnalysis{Format: "CycloneDX", TotalComponents: 1}
	eng.On("AnalyzeSBOM", mock.Anything, mock.Anything, mock.Anything).Return(analysis)
	store.On("SaveSBOMAnalysis", mock.Anything, analysis).Return(domain.AnalysisRun{ID: "run-9", Kind: domain.RunSBOM}, nil)

	rec := postJSON(t, h.HandleSBOM, `{"document":{"components":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-9"`)
	assert.Contains(t, rec.Body.String(), `"total_components":1`)
}

func TestHandlePredict(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

	eng.On("PredictExploitLikelihood", mock.Anything,
		mock.MatchedBy(func(c domain.CVE) bool { return c.ID == "CVE-2024-1234" }),
		mock.Anything,
	).Return(0.75)

	rec := postJSON(t, h.HandlePredict, map[string]any{"cve": map[string]any{"id": "cve-2024-1234", "epss_score": 0.4}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cve_id":"CVE-2024-1234","likelihood":0.75}`, rec.Body.String())

	rec = postJSON(t, h.HandlePredict, map[string]any{"cve": map[string]any{"id": "CVE-2024-1234", "epss_score": 2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeBody_TooLarge(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAnalysisHandler(eng, nil, nil, nil)

	huge := `{"threats":[{"description":"` + strings.Repeat("x", 11<<20) + `"}]}`
	rec := postJSON(t, h.HandleCorrelate, huge)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}
