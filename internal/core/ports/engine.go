package ports

import (
	"time"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// Clock abstracts time so cache expiry and age computations can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ComponentVulnerabilityMatcher decides whether a piece of software is
// affected by a CVE. Implementations range from coarse heuristics to
// CPE/purl-aware matching.
type ComponentVulnerabilityMatcher interface {
	IsVulnerable(software domain.Software, cveID string) bool
}
