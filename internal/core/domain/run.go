package domain

import "time"

// RunKind identifies which engine operation produced a stored run.
type RunKind string

const (
	RunCorrelation RunKind = "correlation"
	RunAssetRisk   RunKind = "asset_risk"
	RunSBOM        RunKind = "sbom"
)

// AnalysisRun is the persisted record of one engine invocation.
type AnalysisRun struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}
