package risk

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/cache"
)

const (
	// matchSaturation is the number of matched threats at which the volume
	// term of the likelihood reaches 1.0.
	matchSaturation = 10.0
	maxRiskScore    = 100.0
)

// Scorer computes asset risk from threat indicators.
type Scorer struct {
	cache   *cache.Cache[domain.AssetRisk]
	matcher ports.ComponentVulnerabilityMatcher
	clock   ports.Clock
	logger  *zap.Logger
}

// NewScorer creates a scorer. A nil matcher falls back to CoarseMatcher and a
// nil clock to the system clock.
func NewScorer(c *cache.Cache[domain.AssetRisk], matcher ports.ComponentVulnerabilityMatcher, clock ports.Clock, logger *zap.Logger) *Scorer {
	if matcher == nil {
		matcher = CoarseMatcher{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		cache:   c,
		matcher: matcher,
		clock:   clock,
		logger:  logger.Named("risk"),
	}
}

// ScoreAssets returns one AssetRisk per asset, in input order.
func (s *Scorer) ScoreAssets(assets []domain.Asset, indicators []domain.ThreatIndicator) []domain.AssetRisk {
	results := make([]domain.AssetRisk, 0, len(assets))

	for _, asset := range assets {
		if cached, ok := s.cache.Get(asset.ID); ok {
			results = append(results, cached)
			continue
		}

		assessment := s.assess(asset, indicators)
		s.cache.Set(asset.ID, assessment)
		results = append(results, assessment)
	}

	return results
}

// match holds an indicator that affects the asset and the software it hit.
type match struct {
	indicator domain.ThreatIndicator
	software  []domain.Software
}

func (s *Scorer) assess(asset domain.Asset, indicators []domain.ThreatIndicator) domain.AssetRisk {
	matches := s.matchIndicators(asset, indicators)

	assessment := domain.AssetRisk{
		AssetID:            asset.ID,
		ThreatCount:        len(matches),
		VulnerableSoftware: []domain.Software{},
		Recommendations:    []string{},
	}
	if len(matches) == 0 {
		return assessment
	}

	seen := make(map[domain.Software]bool)
	for _, m := range matches {
		if m.indicator.Severity.Is(domain.SeverityCritical) {
			assessment.CriticalThreats++
		}
		for _, sw := range m.software {
			if !seen[sw] {
				seen[sw] = true
				assessment.VulnerableSoftware = append(assessment.VulnerableSoftware, sw)
			}
		}
	}

	assessment.RiskScore = calculateRiskScore(asset.Criticality, matches)
	assessment.ExposureWindowDays = s.exposureWindow(matches)
	assessment.Recommendations = buildRecommendations(asset, matches, assessment)

	s.logger.Debug("Asset scored",
		zap.String("asset_id", asset.ID),
		zap.Int("threats", assessment.ThreatCount),
		zap.Float64("risk_score", assessment.RiskScore))

	return assessment
}

func (s *Scorer) matchIndicators(asset domain.Asset, indicators []domain.ThreatIndicator) []match {
	var matches []match
	for _, ind := range indicators {
		switch {
		case ind.Type.Is(domain.IndicatorIP):
			if asset.HasIP(ind.Value) {
				matches = append(matches, match{indicator: ind})
			}
		case ind.Type.Is(domain.IndicatorCVE):
			var hit []domain.Software
			for _, sw := range asset.InstalledSoftware {
				if s.matcher.IsVulnerable(sw, ind.Value) {
					hit = append(hit, sw)
				}
			}
			if len(hit) > 0 {
				matches = append(matches, match{indicator: ind, software: hit})
			}
		}
	}
	return matches
}

// calculateRiskScore applies criticality × likelihood × confidence × 10,
// clamped to [0,100]. No matches means no risk.
func calculateRiskScore(criticality domain.Criticality, matches []match) float64 {
	if len(matches) == 0 {
		return 0.0
	}

	var confidence, severity float64
	for _, m := range matches {
		confidence += float64(m.indicator.Confidence) / 100.0
		severity += m.indicator.Severity.Weight()
	}
	n := float64(len(matches))
	avgConfidence := confidence / n
	avgSeverity := severity / n

	likelihood := (math.Min(1.0, n/matchSaturation) + avgSeverity) / 2

	score := criticality.Weight() * likelihood * avgConfidence * 10
	return math.Max(0, math.Min(score, maxRiskScore))
}

// exposureWindow is the number of whole days since the earliest first_seen
// among matched indicators. Unparsable timestamps are ignored.
func (s *Scorer) exposureWindow(matches []match) int {
	var earliest time.Time
	for _, m := range matches {
		ts, ok := domain.ParseTimestamp(m.indicator.FirstSeen)
		if !ok {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
	}
	if earliest.IsZero() {
		return 0
	}

	days := int(s.clock.Now().Sub(earliest).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// RiskLevel converts a 0-100 risk score to a human-readable level.
func RiskLevel(score float64) string {
	switch {
	case score >= 80.0:
		return "Critical"
	case score >= 60.0:
		return "High"
	case score >= 40.0:
		return "Medium"
	case score > 0:
		return "Low"
	default:
		return "None"
	}
}
