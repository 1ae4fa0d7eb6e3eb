package domain

import (
	"fmt"
	"strings"
	"time"
)

// CVE represents a Common Vulnerabilities and Exposures entry as handed over
// by feed ingestion (NVD, vendor advisories, KEV, EPSS).
type CVE struct {
	ID               string  `json:"id"`          // e.g., "CVE-2024-1234"
	Description      string  `json:"description"` // free text, may mention other CVEs
	CVSSScore        float64 `json:"cvss_score"`  // 0.0-10.0
	CVSSVector       string  `json:"cvss_vector,omitempty"`
	PublishedDate    string  `json:"published_date,omitempty"` // raw feed timestamp, see ParseTimestamp
	ExploitAvailable bool    `json:"exploit_available"`
	EPSSScore        float64 `json:"epss_score"` // 0.0-1.0
}

// NewCVE normalizes and validates a CVE record.
func NewCVE(cve CVE) (CVE, error) {
	cve.ID = strings.ToUpper(strings.TrimSpace(cve.ID))
	if !IsValidCVEID(cve.ID) {
		return CVE{}, fmt.Errorf("%w: %q", ErrInvalidCVEID, cve.ID)
	}
	if cve.CVSSScore < 0 || cve.CVSSScore > 10 {
		return CVE{}, fmt.Errorf("%w: %.1f", ErrInvalidCVSS, cve.CVSSScore)
	}
	if cve.EPSSScore < 0 || cve.EPSSScore > 1 {
		return CVE{}, fmt.Errorf("%w: %.3f", ErrInvalidEPSS, cve.EPSSScore)
	}
	return cve, nil
}

// AffectedProduct is a catalogue entry stating which product versions a CVE
// applies to. Either VersionExact or a [VersionStart, VersionEnd] range is set;
// an empty bound is open.
type AffectedProduct struct {
	Vendor       string `json:"vendor,omitempty"`
	Product      string `json:"product"`
	VersionStart string `json:"version_start,omitempty"`
	VersionEnd   string `json:"version_end,omitempty"`
	VersionExact string `json:"version_exact,omitempty"`
}

// CatalogueEntry is a CVE as stored in the local catalogue.
type CatalogueEntry struct {
	CVE
	Affected []AffectedProduct `json:"affected,omitempty"`
}

// CatalogueSyncStatus tracks the last load of the CVE catalogue.
type CatalogueSyncStatus struct {
	LastSyncTime time.Time
	RecordCount  int
	ErrorMessage string
}
