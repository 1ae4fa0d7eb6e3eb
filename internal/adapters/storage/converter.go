package storage

import (
	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

func toRunModel(r domain.AnalysisRun) *RunModel {
	return &RunModel{
		ID:        r.ID,
		Kind:      string(r.Kind),
		ItemCount: r.ItemCount,
		CreatedAt: r.CreatedAt,
	}
}

func toRun(m RunModel) domain.AnalysisRun {
	return domain.AnalysisRun{
		ID:        m.ID,
		Kind:      domain.RunKind(m.Kind),
		ItemCount: m.ItemCount,
		CreatedAt: m.CreatedAt,
	}
}

func toCorrelationModel(runID string, c domain.ThreatCorrelation) CorrelationModel {
	return CorrelationModel{
		RunID:              runID,
		CVEID:              c.CVEID,
		CorrelationScore:   c.CorrelationScore,
		ActiveExploitation: c.ActiveExploitation,
		ExploitAvailable:   c.ExploitAvailable,
		ExploitLikelihood:  c.ExploitLikelihood,
		ThreatIndicators:   c.ThreatIndicators,
		ThreatActors:       c.ThreatActors,
		Campaigns:          c.Campaigns,
		AttackTechniques:   c.AttackTechniques,
	}
}

func toCorrelation(m CorrelationModel) domain.ThreatCorrelation {
	indicators := m.ThreatIndicators
	if indicators == nil {
		indicators = []string{}
	}
	return domain.ThreatCorrelation{
		CVEID:              m.CVEID,
		ThreatIndicators:   indicators,
		CorrelationScore:   m.CorrelationScore,
		ActiveExploitation: m.ActiveExploitation,
		ExploitAvailable:   m.ExploitAvailable,
		ThreatActors:       m.ThreatActors,
		Campaigns:          m.Campaigns,
		AttackTechniques:   m.AttackTechniques,
		ExploitLikelihood:  m.ExploitLikelihood,
	}
}

func toAssetRiskModel(run domain.AnalysisRun, r domain.AssetRisk) AssetRiskModel {
	return AssetRiskModel{
		RunID:              run.ID,
		AssetID:            r.AssetID,
		RiskScore:          r.RiskScore,
		ThreatCount:        r.ThreatCount,
		CriticalThreats:    r.CriticalThreats,
		ExposureWindowDays: r.ExposureWindowDays,
		VulnerableSoftware: r.VulnerableSoftware,
		Recommendations:    r.Recommendations,
		CreatedAt:          run.CreatedAt,
	}
}

func toAssetRisk(m AssetRiskModel) domain.AssetRisk {
	software := m.VulnerableSoftware
	if software == nil {
		software = []domain.Software{}
	}
	recs := m.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return domain.AssetRisk{
		AssetID:            m.AssetID,
		RiskScore:          m.RiskScore,
		ThreatCount:        m.ThreatCount,
		CriticalThreats:    m.CriticalThreats,
		VulnerableSoftware: software,
		Recommendations:    recs,
		ExposureWindowDays: m.ExposureWindowDays,
	}
}

func toSBOMModel(runID string, a domain.SBOMThreatAnalysis) SBOMAnalysisModel {
	return SBOMAnalysisModel{
		RunID:                   runID,
		Format:                  a.Format,
		TotalComponents:         a.TotalComponents,
		VulnerableComponents:    a.VulnerableComponents,
		ThreatExposure:          a.ThreatExposure,
		CriticalVulnerabilities: a.CriticalVulnerabilities,
		HighVulnerabilities:     a.HighVulnerabilities,
		AffectedComponents:      a.AffectedComponents,
		Recommendations:         a.Recommendations,
	}
}
