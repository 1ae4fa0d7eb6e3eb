package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Validation errors returned by the constructors in this package.
var (
	ErrInvalidCVEID         = errors.New("invalid CVE identifier")
	ErrInvalidCVSS          = errors.New("CVSS score out of range [0,10]")
	ErrInvalidEPSS          = errors.New("EPSS score out of range [0,1]")
	ErrInvalidCriticality   = errors.New("invalid asset criticality")
	ErrInvalidAssetType     = errors.New("invalid asset type")
	ErrInvalidConfidence    = errors.New("confidence out of range [0,100]")
	ErrInvalidIndicatorType = errors.New("invalid indicator type")
	ErrInvalidSeverity      = errors.New("invalid severity")
)

var (
	cveIDRegex = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
)

// IsValidCVEID checks if the string is a well-formed, upper-case CVE identifier.
func IsValidCVEID(id string) bool {
	return cveIDRegex.MatchString(id)
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a feed timestamp tolerantly. Feeds disagree on
// layouts, so anything unparsable is reported through ok=false instead of an error.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
