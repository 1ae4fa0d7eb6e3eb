package domain

// ThreatCorrelation links a CVE to the threat intelligence that mentions it.
type ThreatCorrelation struct {
	CVEID              string   `json:"cve_id"`
	ThreatIndicators   []string `json:"threat_indicators"` // ids of contributing threat objects
	CorrelationScore   float64  `json:"correlation_score"` // 0.0-1.0
	ActiveExploitation bool     `json:"active_exploitation"`
	ExploitAvailable   bool     `json:"exploit_available"`
	ThreatActors       []string `json:"threat_actors,omitempty"`
	Campaigns          []string `json:"campaigns,omitempty"`
	AttackTechniques   []string `json:"attack_techniques,omitempty"`
	ExploitLikelihood  float64  `json:"exploit_likelihood"` // 0.0-1.0, informational
}

// AssetRisk is the risk assessment of a single asset.
// A ThreatCount of 0 implies a RiskScore of 0. Matches with zero confidence
// can also score 0.
type AssetRisk struct {
	AssetID            string     `json:"asset_id"`
	RiskScore          float64    `json:"risk_score"` // 0.0-100.0
	ThreatCount        int        `json:"threat_count"`
	CriticalThreats    int        `json:"critical_threats"`
	VulnerableSoftware []Software `json:"vulnerable_software"`
	Recommendations    []string   `json:"recommendations"`
	ExposureWindowDays int        `json:"exposure_window_days"`
}

// ComponentVulnerability is a single component/CVE pairing found in an SBOM.
type ComponentVulnerability struct {
	Component  string   `json:"component"`
	Version    string   `json:"version"`
	PURL       string   `json:"purl,omitempty"`
	CVEID      string   `json:"cve_id"`
	Severity   Severity `json:"severity"`
	Confidence int      `json:"confidence"`
}

// SBOM analysis output limits.
const (
	MaxCriticalVulnerabilities = 10
	MaxHighVulnerabilities     = 20
	MaxAffectedComponents      = 50
)

// SBOMThreatAnalysis summarizes threat exposure of an SBOM.
type SBOMThreatAnalysis struct {
	Format                  string                   `json:"format"`
	TotalComponents         int                      `json:"total_components"`
	VulnerableComponents    int                      `json:"vulnerable_components"`
	ThreatExposure          float64                  `json:"threat_exposure"` // 0.0-100.0
	CriticalVulnerabilities []ComponentVulnerability `json:"critical_vulnerabilities"`
	HighVulnerabilities     []ComponentVulnerability `json:"high_vulnerabilities"`
	AffectedComponents      []Software               `json:"affected_components"`
	Recommendations         []string                 `json:"recommendations"`
}
