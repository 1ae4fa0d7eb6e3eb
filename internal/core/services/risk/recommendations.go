package risk

import (
	"fmt"
	"strings"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

const (
	maxSoftwareInRecommendation = 5
	segmentationThreshold       = 5
	patchAutomationThreshold    = 3
)

// buildRecommendations derives remediation advice from the shape of the
// matched threats. The order of the returned lines is stable.
func buildRecommendations(asset domain.Asset, matches []match, assessment domain.AssetRisk) []string {
	recs := []string{}

	if assessment.CriticalThreats > 0 {
		recs = append(recs, fmt.Sprintf("URGENT: Address %d critical threat(s) immediately", assessment.CriticalThreats))
	}

	if len(assessment.VulnerableSoftware) > 0 {
		var names []string
		seen := make(map[string]bool)
		for _, sw := range assessment.VulnerableSoftware {
			if seen[sw.Name] {
				continue
			}
			seen[sw.Name] = true
			names = append(names, sw.Name)
			if len(names) == maxSoftwareInRecommendation {
				break
			}
		}
		recs = append(recs, "Update vulnerable software: "+strings.Join(names, ", "))
	}

	assetType := domain.AssetType(strings.ToLower(string(asset.Type)))
	if (assetType == domain.AssetServer || assetType == domain.AssetNetworkDevice) && len(matches) > segmentationThreshold {
		recs = append(recs, "Implement network segmentation to limit lateral movement")
	}

	var ipThreats, cveThreats int
	for _, m := range matches {
		switch {
		case m.indicator.Type.Is(domain.IndicatorIP):
			ipThreats++
		case m.indicator.Type.Is(domain.IndicatorCVE):
			cveThreats++
		}
	}

	if ipThreats > 0 {
		recs = append(recs, "Monitor network traffic to and from flagged IP addresses")
	}
	if cveThreats > patchAutomationThreshold {
		recs = append(recs, "Enable automated patch management for this asset")
	}

	return recs
}
