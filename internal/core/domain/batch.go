package domain

import "fmt"

// NewCVEs validates every record with NewCVE. The error names the offending index.
func NewCVEs(in []CVE) ([]CVE, error) {
	out := make([]CVE, 0, len(in))
	for i, c := range in {
		v, err := NewCVE(c)
		if err != nil {
			return nil, fmt.Errorf("vulnerabilities[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NewAssets validates every asset with NewAsset.
func NewAssets(in []Asset) ([]Asset, error) {
	out := make([]Asset, 0, len(in))
	for i, a := range in {
		v, err := NewAsset(a)
		if err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NewThreatIndicators validates every indicator with NewThreatIndicator.
func NewThreatIndicators(in []ThreatIndicator) ([]ThreatIndicator, error) {
	out := make([]ThreatIndicator, 0, len(in))
	for i, ti := range in {
		v, err := NewThreatIndicator(ti)
		if err != nil {
			return nil, fmt.Errorf("indicators[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NormalizeThreatObjects maps free-form STIX type tags onto the known set.
func NormalizeThreatObjects(in []ThreatObject) []ThreatObject {
	out := make([]ThreatObject, len(in))
	for i, t := range in {
		t.Type = ParseThreatObjectType(string(t.Type))
		out[i] = t
	}
	return out
}
