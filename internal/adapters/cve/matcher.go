package cve

import (
	"context"
	"strings"

	version "github.com/hashicorp/go-version"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// CatalogueMatcher implements ports.ComponentVulnerabilityMatcher using the
// affected-product data of the local CVE catalogue. CVEs without catalogue
// data are delegated to the fallback matcher.
type CatalogueMatcher struct {
	affected map[string][]domain.AffectedProduct
	fallback ports.ComponentVulnerabilityMatcher
}

var _ ports.ComponentVulnerabilityMatcher = (*CatalogueMatcher)(nil)

// NewCatalogueMatcher snapshots the affected products of repo.
func NewCatalogueMatcher(ctx context.Context, repo ports.CVERepository, fallback ports.ComponentVulnerabilityMatcher) (*CatalogueMatcher, error) {
	affected, err := repo.ListAffected(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogueMatcher{affected: affected, fallback: fallback}, nil
}

// IsVulnerable reports whether software falls in one of the product/version
// ranges recorded for cveID.
func (m *CatalogueMatcher) IsVulnerable(software domain.Software, cveID string) bool {
	products, ok := m.affected[strings.ToUpper(cveID)]
	if !ok || len(products) == 0 {
		if m.fallback == nil {
			return false
		}
		return m.fallback.IsVulnerable(software, cveID)
	}

	name := normalizeProduct(software.Name)
	if name == "" || isGenericTerm(name) {
		return false
	}

	for _, p := range products {
		if normalizeProduct(p.Product) != name {
			continue
		}
		if versionAffected(software.Version, p) {
			return true
		}
	}
	return false
}

// versionAffected checks v against the exact version or the inclusive range of p.
// A product entry without any version constraint matches every version.
func versionAffected(v string, p domain.AffectedProduct) bool {
	v = strings.TrimSpace(v)
	if p.VersionExact != "" {
		return compareVersions(v, p.VersionExact) == 0
	}
	if p.VersionStart == "" && p.VersionEnd == "" {
		return true
	}
	if v == "" {
		return false
	}
	if p.VersionStart != "" && compareVersions(v, p.VersionStart) < 0 {
		return false
	}
	if p.VersionEnd != "" && compareVersions(v, p.VersionEnd) > 0 {
		return false
	}
	return true
}

// compareVersions compares semantic-ish versions, falling back to a string
// comparison when either side does not parse.
func compareVersions(a, b string) int {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
	return va.Compare(vb)
}

// normalizeProduct normalizes product names for consistent matching.
func normalizeProduct(product string) string {
	product = strings.ToLower(strings.TrimSpace(product))
	product = strings.ReplaceAll(product, "_", "-")
	product = strings.ReplaceAll(product, " ", "-")
	return product
}

// isGenericTerm checks if a name is too generic to match on.
func isGenericTerm(s string) bool {
	switch s {
	case "generic", "unknown", "library", "package", "app", "application", "*":
		return true
	}
	return false
}
