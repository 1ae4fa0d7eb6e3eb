// Package engine assembles the correlation, risk, SBOM and exploit
// components behind a single facade that owns the result caches.
package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/config"
	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/cache"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/correlation"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/exploit"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/risk"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
	"github.com/lcalzada-xor/threatcorr/internal/telemetry"
)

// Cache names used in metrics labels.
const (
	correlationCache = "correlation"
	assetRiskCache   = "asset_risk"
)

// CacheStats reports the current number of entries in each result cache.
type CacheStats struct {
	Correlations int `json:"correlations"`
	AssetRisks   int `json:"asset_risks"`
}

type options struct {
	clock   ports.Clock
	matcher ports.ComponentVulnerabilityMatcher
}

// Option customizes a ThreatCorrelator.
type Option func(*options)

// WithClock replaces the wall clock used for cache expiry and age computations.
func WithClock(clock ports.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithMatcher replaces the coarse component/CVE matcher.
func WithMatcher(matcher ports.ComponentVulnerabilityMatcher) Option {
	return func(o *options) { o.matcher = matcher }
}

// ThreatCorrelator is the entry point to the scoring engine. It is safe for
// concurrent use.
type ThreatCorrelator struct {
	correlations *cache.Cache[domain.ThreatCorrelation]
	assetRisks   *cache.Cache[domain.AssetRisk]

	correlator *correlation.Engine
	scorer     *risk.Scorer
	analyzer   *sbom.Analyzer
	predictor  *exploit.Predictor

	tracer trace.Tracer
	logger *zap.Logger
}

// New builds a ThreatCorrelator with empty caches.
func New(cfg config.EngineConfig, logger *zap.Logger, opts ...Option) *ThreatCorrelator {
	o := options{clock: ports.SystemClock{}, matcher: risk.CoarseMatcher{}}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	correlations := cache.New[domain.ThreatCorrelation](cfg.CacheEnabled, cfg.CacheTTL(), o.clock)
	correlations.Observe(observeLookup(correlationCache))
	assetRisks := cache.New[domain.AssetRisk](cfg.CacheEnabled, cfg.CacheTTL(), o.clock)
	assetRisks.Observe(observeLookup(assetRiskCache))

	predictor := exploit.NewPredictor(o.clock)

	logger.Info("Threat correlator initialized",
		zap.Bool("cache_enabled", cfg.CacheEnabled),
		zap.Duration("cache_ttl", cfg.CacheTTL()),
		zap.Float64("min_correlation_score", cfg.MinCorrelationScore))

	return &ThreatCorrelator{
		correlations: correlations,
		assetRisks:   assetRisks,
		correlator: correlation.NewEngine(correlation.Options{
			MinScore:                 cfg.MinCorrelationScore,
			ExploitAvailableWeight:   cfg.ExploitAvailableWeight,
			ActiveExploitationWeight: cfg.ActiveExploitationWeight,
		}, correlations, predictor, logger),
		scorer:    risk.NewScorer(assetRisks, o.matcher, o.clock, logger),
		analyzer:  sbom.NewAnalyzer(o.matcher, logger),
		predictor: predictor,
		tracer:    telemetry.Tracer(),
		logger:    logger,
	}
}

func observeLookup(name string) func(hit bool) {
	hits := telemetry.CacheLookups.WithLabelValues(name, "hit")
	misses := telemetry.CacheLookups.WithLabelValues(name, "miss")
	return func(hit bool) {
		if hit {
			hits.Inc()
		} else {
			misses.Inc()
		}
	}
}

// Correlate links vulnerabilities to threat objects. CVEs scoring below the
// configured minimum are left out of the result.
func (t *ThreatCorrelator) Correlate(ctx context.Context, vulns []domain.CVE, threats []domain.ThreatObject) []domain.ThreatCorrelation {
	_, span := t.tracer.Start(ctx, "engine.Correlate", trace.WithAttributes(
		attribute.Int("vulnerabilities", len(vulns)),
		attribute.Int("threats", len(threats)),
	))
	defer span.End()

	results := t.correlator.Correlate(vulns, threats)

	telemetry.CorrelationsTotal.Add(float64(len(results)))
	if len(threats) > 0 && len(vulns) > len(results) {
		telemetry.CorrelationsDropped.Add(float64(len(vulns) - len(results)))
	}
	span.SetAttributes(attribute.Int("correlations", len(results)))

	return results
}

// ScoreAssets computes the risk of each asset against threat indicators.
func (t *ThreatCorrelator) ScoreAssets(ctx context.Context, assets []domain.Asset, indicators []domain.ThreatIndicator) []domain.AssetRisk {
	_, span := t.tracer.Start(ctx, "engine.ScoreAssets", trace.WithAttributes(
		attribute.Int("assets", len(assets)),
		attribute.Int("indicators", len(indicators)),
	))
	defer span.End()

	results := t.scorer.ScoreAssets(assets, indicators)
	for _, r := range results {
		telemetry.AssetRiskScore.Observe(r.RiskScore)
	}
	return results
}

// AnalyzeSBOM measures the threat exposure of an SBOM document.
func (t *ThreatCorrelator) AnalyzeSBOM(ctx context.Context, doc sbom.Document, indicators []domain.ThreatIndicator) domain.SBOMThreatAnalysis {
	_, span := t.tracer.Start(ctx, "engine.AnalyzeSBOM", trace.WithAttributes(
		attribute.Int("indicators", len(indicators)),
	))
	defer span.End()

	result := t.analyzer.Analyze(doc, indicators)

	telemetry.SBOMAnalyses.WithLabelValues(result.Format).Inc()
	span.SetAttributes(
		attribute.String("format", result.Format),
		attribute.Int("components", result.TotalComponents),
		attribute.Float64("exposure", result.ThreatExposure),
	)
	return result
}

// PredictExploitLikelihood estimates the probability that cve is exploited.
// The result is never cached.
func (t *ThreatCorrelator) PredictExploitLikelihood(ctx context.Context, cve domain.CVE, threats []domain.ThreatObject) float64 {
	_, span := t.tracer.Start(ctx, "engine.PredictExploitLikelihood", trace.WithAttributes(
		attribute.String("cve_id", cve.ID),
	))
	defer span.End()

	likelihood := t.predictor.Predict(cve, threats)

	telemetry.ExploitPredictions.Inc()
	span.SetAttributes(attribute.Float64("likelihood", likelihood))
	return likelihood
}

// ClearCache drops all cached correlations and asset risk assessments.
func (t *ThreatCorrelator) ClearCache() {
	t.correlations.Clear()
	t.assetRisks.Clear()
	t.logger.Info("Result caches cleared")
}

// CacheStats returns the current entry counts of both caches.
func (t *ThreatCorrelator) CacheStats() CacheStats {
	return CacheStats{
		Correlations: t.correlations.Len(),
		AssetRisks:   t.assetRisks.Len(),
	}
}
