// Package web holds test doubles shared by the HTTP handler and server tests.
package web

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/engine"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
)

// MockEngine is a mock of handlers.Engine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Correlate(ctx context.Context, vulns []domain.CVE, threats []domain.ThreatObject) []domain.ThreatCorrelation {
	args := m.Called(ctx, vulns, threats)
	return args.Get(0).([]domain.ThreatCorrelation)
}

func (m *MockEngine) ScoreAssets(ctx context.Context, assets []domain.Asset, indicators []domain.ThreatIndicator) []domain.AssetRisk {
	args := m.Called(ctx, assets, indicators)
	return args.Get(0).([]domain.AssetRisk)
}

func (m *MockEngine) AnalyzeSBOM(ctx context.Context, doc sbom.Document, indicators []domain.ThreatIndicator) domain.SBOMThreatAnalysis {
	args := m.Called(ctx, doc, indicators)
	return args.Get(0).(domain.SBOMThreatAnalysis)
}

func (m *MockEngine) PredictExploitLikelihood(ctx context.Context, cve domain.CVE, threats []domain.ThreatObject) float64 {
	args := m.Called(ctx, cve, threats)
	return args.Get(0).(float64)
}

func (m *MockEngine) ClearCache() {
	m.Called()
}

func (m *MockEngine) CacheStats() engine.CacheStats {
	args := m.Called()
	return args.Get(0).(engine.CacheStats)
}

// MockResultStore is a mock of ports.ResultStore
type MockResultStore struct {
	mock.Mock
}

func (m *MockResultStore) SaveCorrelations(ctx context.Context, correlations []domain.ThreatCorrelation) (domain.AnalysisRun, error) {
	args := m.Called(ctx, correlations)
	return args.Get(0).(domain.AnalysisRun), args.Error(1)
}

func (m *MockResultStore) SaveAssetRisks(ctx context.Context, risks []domain.AssetRisk) (domain.AnalysisRun, error) {
	args := m.Called(ctx, risks)
	return args.Get(0).(domain.AnalysisRun), args.Error(1)
}

func (m *MockResultStore) SaveSBOMAnalysis(ctx context.Context, analysis domain.SBOMThreatAnalysis) (domain.AnalysisRun, error) {
	args := m.Called(ctx, analysis)
	return args.Get(0).(domain.AnalysisRun), args.Error(1)
}

func (m *MockResultStore) LatestAssetRisk(ctx context.Context, assetID string) (*domain.AssetRisk, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssetRisk), args.Error(1)
}

func (m *MockResultStore) CorrelationsForRun(ctx context.Context, runID string) ([]domain.ThreatCorrelation, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ThreatCorrelation), args.Error(1)
}

func (m *MockResultStore) ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalysisRun), args.Error(1)
}

func (m *MockResultStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockCVELookup is a mock of handlers.CVELookup
type MockCVELookup struct {
	mock.Mock
}

func (m *MockCVELookup) FindByIDs(ctx context.Context, ids []string) ([]domain.CVE, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CVE), args.Error(1)
}
