package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// setupStore opens a store on a temp database with deterministic ids and timestamps.
func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	seq := 0
	store.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Minute)
	}
	ids := 0
	store.newID = func() string {
		ids++
		return fmt.Sprintf("run-%03d", ids)
	}
	return store
}

func TestSaveCorrelations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	correlations := []domain.ThreatCorrelation{
		{
			CVEID:              "CVE-2021-44228",
			ThreatIndicators:   []string{"indicator--1", "threat-actor--2"},
			CorrelationScore:   0.9,
			ActiveExploitation: true,
			ExploitAvailable:   true,
			ThreatActors:       []string{"APT-X"},
			AttackTechniques:   []string{"T1190"},
			ExploitLikelihood:  0.8,
		},
		{CVEID: "CVE-2024-0001", ThreatIndicators: []string{"indicator--3"}, CorrelationScore: 0.7},
	}

	run, err := store.SaveCorrelations(ctx, correlations)
	require.NoError(t, err)
	assert.Equal(t, "run-001", run.ID)
	assert.Equal(t, domain.RunCorrelation, run.Kind)
	assert.Equal(t, 2, run.ItemCount)

	stored, err := store.CorrelationsForRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, correlations[0], stored[0])
	assert.Equal(t, "CVE-2024-0001", stored[1].CVEID)
	assert.Empty(t, stored[1].ThreatActors)
}

func TestSaveCorrelations_Empty(t *testing.T) {
	store := setupStore(t)

	run, err := store.SaveCorrelations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, run.ItemCount)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLatestAssetRisk(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	missing, err := store.LatestAssetRisk(ctx, "srv-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first := domain.AssetRisk{
		AssetID:            "srv-1",
		RiskScore:          20,
		ThreatCount:        1,
		VulnerableSoftware: []domain.Software{{Name: "openssl", Version: "1.0.2"}},
		Recommendations:    []string{"Update vulnerable software: openssl"},
		ExposureWindowDays: 3,
	}
	_, err = store.SaveAssetRisks(ctx, []domain.AssetRisk{first})
	require.NoError(t, err)

	second := first
	second.RiskScore = 49.5
	second.CriticalThreats = 1
	_, err = store.SaveAssetRisks(ctx, []domain.AssetRisk{second, {AssetID: "ws-1", VulnerableSoftware: []domain.Software{}, Recommendations: []string{}}})
	require.NoError(t, err)

	latest, err := store.LatestAssetRisk(ctx, "srv-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second, *latest)

	clean, err := store.LatestAssetRisk(ctx, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, clean)
	assert.Equal(t, 0.0, clean.RiskScore)
	assert.NotNil(t, clean.VulnerableSoftware)
	assert.NotNil(t, clean.Recommendations)
}

func TestSaveSBOMAnalysis(t *testing.T) {
	store := setupStore(t)

	analysis := domain.SBOMThreatAnalysis{
		Format:               "cyclonedx",
		TotalComponents:      3,
		VulnerableComponents: 1,
		ThreatExposure:       41.6,
		CriticalVulnerabilities: []domain.ComponentVulnerability{
			{Component: "log4j-core", Version: "2.14.1", CVEID: "CVE-2021-44228", Severity: domain.SeverityCritical, Confidence: 95},
		},
		AffectedComponents: []domain.Software{{Name: "log4j-core", Version: "2.14.1"}},
		Recommendations:    []string{"Monitor affected components for new advisories and exploit activity"},
	}

	run, err := store.SaveSBOMAnalysis(context.Background(), analysis)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSBOM, run.Kind)
	assert.Equal(t, 3, run.ItemCount)

	var model SBOMAnalysisModel
	require.NoError(t, store.db.Where("run_id = ?", run.ID).First(&model).Error)
	assert.Equal(t, "cyclonedx", model.Format)
	require.Len(t, model.CriticalVulnerabilities, 1)
	assert.Equal(t, "CVE-2021-44228", model.CriticalVulnerabilities[0].CVEID)
}

func TestListRuns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.SaveCorrelations(ctx, nil)
	require.NoError(t, err)
	_, err = store.SaveAssetRisks(ctx, nil)
	require.NoError(t, err)
	_, err = store.SaveSBOMAnalysis(ctx, domain.SBOMThreatAnalysis{Format: "spdx"})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, domain.RunSBOM, runs[0].Kind, "newest first")
	assert.Equal(t, domain.RunAssetRisk, runs[1].Kind)
	assert.Equal(t, domain.RunCorrelation, runs[2].Kind)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSaveCorrelations_CancelledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.SaveCorrelations(ctx, []domain.ThreatCorrelation{{CVEID: "CVE-2024-0001"}})
	assert.Error(t, err)
}
