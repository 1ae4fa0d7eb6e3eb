package domain

import (
	"fmt"
	"strings"
)

// ThreatObjectType is the STIX object type of a threat intelligence object.
type ThreatObjectType string

const (
	ThreatIndicatorObject ThreatObjectType = "indicator"
	ThreatActorObject     ThreatObjectType = "threat-actor"
	ThreatCampaignObject  ThreatObjectType = "campaign"
	ThreatMalwareObject   ThreatObjectType = "malware"
	ThreatAttackPattern   ThreatObjectType = "attack-pattern"
	ThreatVulnerability   ThreatObjectType = "vulnerability"
	ThreatOtherObject     ThreatObjectType = "other"
)

// ParseThreatObjectType maps a STIX type tag onto the known set. Unknown tags
// become ThreatOtherObject; they still take part in correlation.
func ParseThreatObjectType(s string) ThreatObjectType {
	t := ThreatObjectType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ThreatIndicatorObject, ThreatActorObject, ThreatCampaignObject,
		ThreatMalwareObject, ThreatAttackPattern, ThreatVulnerability:
		return t
	}
	return ThreatOtherObject
}

// Well known labels and reference sources.
const (
	LabelExploit            = "exploit"
	LabelActiveExploitation = "active-exploitation"
	SourceMitreAttack       = "mitre-attack"
)

// ExternalReference links a threat object to a CVE, an ATT&CK technique or an advisory.
type ExternalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ThreatObject is a STIX-shaped threat intelligence object.
type ThreatObject struct {
	ID                 string              `json:"id"`
	Type               ThreatObjectType    `json:"type"`
	Created            string              `json:"created,omitempty"`
	Modified           string              `json:"modified,omitempty"`
	Name               string              `json:"name,omitempty"`
	Description        string              `json:"description,omitempty"`
	Labels             []string            `json:"labels,omitempty"`
	ExternalReferences []ExternalReference `json:"external_references,omitempty"`
}

// HasLabel reports whether the object carries label (case-insensitive).
func (t ThreatObject) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// ReferencesCVE reports whether any external reference names cveID.
// References without an external id are skipped.
func (t ThreatObject) ReferencesCVE(cveID string) bool {
	for _, ref := range t.ExternalReferences {
		if ref.ExternalID == "" {
			continue
		}
		if strings.EqualFold(ref.ExternalID, cveID) {
			return true
		}
	}
	return false
}

// MentionsCVE reports whether cveID appears literally in the description.
func (t ThreatObject) MentionsCVE(cveID string) bool {
	if t.Description == "" || cveID == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(t.Description), strings.ToUpper(cveID))
}

// IndicatorType is the kind of observable carried by a ThreatIndicator.
type IndicatorType string

const (
	IndicatorIP     IndicatorType = "IP"
	IndicatorDomain IndicatorType = "DOMAIN"
	IndicatorHash   IndicatorType = "HASH"
	IndicatorURL    IndicatorType = "URL"
	IndicatorEmail  IndicatorType = "EMAIL"
	IndicatorCVE    IndicatorType = "CVE"
)

// ParseIndicatorType normalizes s to upper case and checks it against the known types.
func ParseIndicatorType(s string) (IndicatorType, error) {
	t := IndicatorType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case IndicatorIP, IndicatorDomain, IndicatorHash, IndicatorURL, IndicatorEmail, IndicatorCVE:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIndicatorType, s)
}

// Is compares indicator types case-insensitively.
func (t IndicatorType) Is(other IndicatorType) bool {
	return strings.EqualFold(string(t), string(other))
}

// Severity of a threat indicator or a vulnerability finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity normalizes s to upper case and checks it against the known levels.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Is compares severities case-insensitively.
func (s Severity) Is(other Severity) bool {
	return strings.EqualFold(string(s), string(other))
}

// Weight maps the severity onto [0.25, 1.0].
func (s Severity) Weight() float64 {
	switch Severity(strings.ToUpper(string(s))) {
	case SeverityLow:
		return 0.25
	case SeverityMedium:
		return 0.5
	case SeverityHigh:
		return 0.75
	case SeverityCritical:
		return 1.0
	default:
		return 0
	}
}

// ThreatIndicator is an IOC (or a CVE observed in the wild) reported by a feed.
type ThreatIndicator struct {
	ID         string        `json:"id"`
	Type       IndicatorType `json:"type"`
	Value      string        `json:"value"`
	ThreatType string        `json:"threat_type,omitempty"` // malware, c2, phishing, ...
	Confidence int           `json:"confidence"`            // 0-100
	Severity   Severity      `json:"severity"`
	FirstSeen  string        `json:"first_seen,omitempty"`
	LastSeen   string        `json:"last_seen,omitempty"`
	Tags       []string      `json:"tags,omitempty"`
}

// NewThreatIndicator normalizes and validates an indicator.
func NewThreatIndicator(ti ThreatIndicator) (ThreatIndicator, error) {
	t, err := ParseIndicatorType(string(ti.Type))
	if err != nil {
		return ThreatIndicator{}, err
	}
	sev, err := ParseSeverity(string(ti.Severity))
	if err != nil {
		return ThreatIndicator{}, err
	}
	if ti.Confidence < 0 || ti.Confidence > 100 {
		return ThreatIndicator{}, fmt.Errorf("%w: %d", ErrInvalidConfidence, ti.Confidence)
	}
	ti.Type = t
	ti.Severity = sev
	if t == IndicatorCVE {
		ti.Value = strings.ToUpper(strings.TrimSpace(ti.Value))
	}
	return ti, nil
}
