package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "threatcorr"

var (
	// CorrelationsTotal counts correlations returned to callers
	CorrelationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlations_total",
			Help:      "Total number of CVE/threat correlations reported",
		},
	)

	// CorrelationsDropped counts CVEs that fell below the minimum score
	CorrelationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlations_dropped_total",
			Help:      "Total number of CVEs dropped by the minimum correlation score",
		},
	)

	// CacheLookups counts result cache lookups by cache and outcome
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of result cache lookups",
		},
		[]string{"cache", "result"},
	)

	// AssetRiskScore observes computed asset risk scores
	AssetRiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_risk_score",
			Help:      "Distribution of asset risk scores (0-100)",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// SBOMAnalyses counts SBOM analyses by detected format
	SBOMAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sbom_analyses_total",
			Help:      "Total number of SBOM documents analyzed",
		},
		[]string{"format"},
	)

	// ExploitPredictions counts exploit likelihood predictions
	ExploitPredictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exploit_predictions_total",
			Help:      "Total number of exploit likelihood predictions",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is idempotent.
func InitMetrics() {
	once.Do(func() {
		// Errors are ignored so a pre-populated registry does not panic
		prometheus.DefaultRegisterer.Register(CorrelationsTotal)
		prometheus.DefaultRegisterer.Register(CorrelationsDropped)
		prometheus.DefaultRegisterer.Register(CacheLookups)
		prometheus.DefaultRegisterer.Register(AssetRiskScore)
		prometheus.DefaultRegisterer.Register(SBOMAnalyses)
		prometheus.DefaultRegisterer.Register(ExploitPredictions)
	})
}
