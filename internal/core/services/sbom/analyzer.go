package sbom

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

const (
	highSeverityWeight   = 0.7
	exposureScale        = 50.0
	maxExposure          = 100.0
	vulnerableRatioAlert = 0.3
)

// Analyzer measures the threat exposure of an SBOM.
type Analyzer struct {
	matcher ports.ComponentVulnerabilityMatcher
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer using matcher to decide which components
// are affected by a CVE indicator.
func NewAnalyzer(matcher ports.ComponentVulnerabilityMatcher, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		matcher: matcher,
		logger:  logger.Named("sbom"),
	}
}

// Analyze matches every component against every CVE indicator.
// Output lists are truncated and keep discovery order.
func (a *Analyzer) Analyze(doc Document, indicators []domain.ThreatIndicator) domain.SBOMThreatAnalysis {
	if doc == nil {
		doc = &UnknownDocument{}
	}

	components := doc.Inventory()
	result := domain.SBOMThreatAnalysis{
		Format:                  string(doc.Format()),
		TotalComponents:         len(components),
		CriticalVulnerabilities: []domain.ComponentVulnerability{},
		HighVulnerabilities:     []domain.ComponentVulnerability{},
		AffectedComponents:      []domain.Software{},
		Recommendations:         []string{},
	}
	if len(components) == 0 {
		return result
	}

	var cveIndicators []domain.ThreatIndicator
	for _, ind := range indicators {
		if ind.Type.Is(domain.IndicatorCVE) {
			cveIndicators = append(cveIndicators, ind)
		}
	}

	var criticalCount, highCount int
	for _, comp := range components {
		vulnerable := false
		for _, ind := range cveIndicators {
			if !a.matcher.IsVulnerable(comp, ind.Value) {
				continue
			}
			vulnerable = true

			finding := domain.ComponentVulnerability{
				Component:  comp.Name,
				Version:    comp.Version,
				PURL:       comp.PURL,
				CVEID:      ind.Value,
				Severity:   ind.Severity,
				Confidence: ind.Confidence,
			}
			switch {
			case ind.Severity.Is(domain.SeverityCritical):
				criticalCount++
				if len(result.CriticalVulnerabilities) < domain.MaxCriticalVulnerabilities {
					result.CriticalVulnerabilities = append(result.CriticalVulnerabilities, finding)
				}
			case ind.Severity.Is(domain.SeverityHigh):
				highCount++
				if len(result.HighVulnerabilities) < domain.MaxHighVulnerabilities {
					result.HighVulnerabilities = append(result.HighVulnerabilities, finding)
				}
			}
		}

		if vulnerable {
			result.VulnerableComponents++
			if len(result.AffectedComponents) < domain.MaxAffectedComponents {
				result.AffectedComponents = append(result.AffectedComponents, comp)
			}
		}
	}

	ratio := float64(result.VulnerableComponents) / float64(result.TotalComponents)
	result.ThreatExposure = exposure(ratio, criticalCount, highCount, result.TotalComponents)
	result.Recommendations = sbomRecommendations(ratio, criticalCount, highCount, result.VulnerableComponents)

	a.logger.Debug("SBOM analyzed",
		zap.String("format", result.Format),
		zap.Int("components", result.TotalComponents),
		zap.Int("vulnerable", result.VulnerableComponents),
		zap.Float64("exposure", result.ThreatExposure))

	return result
}

func exposure(ratio float64, critical, high, total int) float64 {
	if total == 0 {
		return 0.0
	}
	severityWeight := (float64(critical) + float64(high)*highSeverityWeight) / float64(total+1)
	return math.Min(maxExposure, (ratio+severityWeight)*exposureScale)
}

func sbomRecommendations(ratio float64, critical, high, vulnerable int) []string {
	recs := []string{}
	if critical > 0 {
		recs = append(recs, fmt.Sprintf("CRITICAL: Remediate %d critical vulnerabilit(ies) in SBOM components immediately", critical))
	}
	if high > 0 {
		recs = append(recs, fmt.Sprintf("HIGH: Plan remediation of %d high-severity vulnerabilit(ies)", high))
	}
	if ratio > vulnerableRatioAlert {
		recs = append(recs, fmt.Sprintf("%.0f%% of components are vulnerable; review dependency selection and update policy", ratio*100))
	}
	if vulnerable > 0 {
		recs = append(recs, "Monitor affected components for new advisories and exploit activity")
	}
	return recs
}
