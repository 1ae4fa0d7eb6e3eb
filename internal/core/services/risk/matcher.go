package risk

import (
	"strings"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// CoarseMatcher treats any software with a meaningful name and a version as
// a candidate for every CVE. It is a placeholder until CPE/purl matching is
// available and callers can replace it through ports.ComponentVulnerabilityMatcher.
type CoarseMatcher struct{}

var _ ports.ComponentVulnerabilityMatcher = CoarseMatcher{}

// IsVulnerable implements ports.ComponentVulnerabilityMatcher.
func (CoarseMatcher) IsVulnerable(software domain.Software, cveID string) bool {
	name := strings.TrimSpace(software.Name)
	version := strings.TrimSpace(software.Version)
	return len(name) > 3 && version != ""
}
