package ports

import (
	"context"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// ResultStore defines the behavior for persisting engine results.
type ResultStore interface {
	// SaveCorrelations stores correlations under a new run and returns it.
	SaveCorrelations(ctx context.Context, correlations []domain.ThreatCorrelation) (domain.AnalysisRun, error)

	// SaveAssetRisks stores asset risk assessments under a new run and returns it.
	SaveAssetRisks(ctx context.Context, risks []domain.AssetRisk) (domain.AnalysisRun, error)

	// SaveSBOMAnalysis stores an SBOM analysis under a new run and returns it.
	SaveSBOMAnalysis(ctx context.Context, analysis domain.SBOMThreatAnalysis) (domain.AnalysisRun, error)

	// LatestAssetRisk returns the most recent assessment of an asset, or nil if none exists.
	LatestAssetRisk(ctx context.Context, assetID string) (*domain.AssetRisk, error)

	// CorrelationsForRun returns the correlations stored under a run.
	CorrelationsForRun(ctx context.Context, runID string) ([]domain.ThreatCorrelation, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error)

	Close() error
}
