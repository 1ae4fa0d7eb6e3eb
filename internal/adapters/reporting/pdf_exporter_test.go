package reporting

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

func testMetadata() ReportMetadata {
	return ReportMetadata{
		ID:          "3f2a9c71-0b4e-4c55-9d1a-2f8e7c6b5a40",
		Title:       "Asset Risk Report",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		GeneratedBy: "Test Suite",
	}
}

func TestPDFExporter_ExportAssetRisk(t *testing.T) {
	exporter := NewPDFExporter()

	report := &AssetRiskReport{
		Metadata: testMetadata(),
		Risks: []domain.AssetRisk{
			{AssetID: "ws-1", VulnerableSoftware: []domain.Software{}, Recommendations: []string{}},
			{
				AssetID:            "srv-1",
				RiskScore:          49.5,
				ThreatCount:        1,
				CriticalThreats:    1,
				VulnerableSoftware: []domain.Software{{Name: "openssl", Version: "1.0.2"}},
				Recommendations: []string{
					"URGENT: Address 1 critical threat(s) immediately",
					"Monitor network traffic to and from flagged IP addresses",
				},
				ExposureWindowDays: 10,
			},
		},
	}

	pdfBytes, err := exporter.ExportAssetRisk(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")), "output should be a PDF")
	assert.Greater(t, len(pdfBytes), 1000)

	// input order is left untouched
	assert.Equal(t, "ws-1", report.Risks[0].AssetID)
}

func TestPDFExporter_ExportAssetRisk_Empty(t *testing.T) {
	pdfBytes, err := NewPDFExporter().ExportAssetRisk(&AssetRiskReport{Metadata: testMetadata()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))
}

func TestPDFExporter_ExportAssetRisk_ManyAssets(t *testing.T) {
	risks := make([]domain.AssetRisk, 0, 80)
	for i := 0; i < 80; i++ {
		risks = append(risks, domain.AssetRisk{
			AssetID:         fmt.Sprintf("asset-%02d", i),
			RiskScore:       float64(i),
			ThreatCount:     1,
			Recommendations: []string{"Monitor network traffic to and from flagged IP addresses"},
		})
	}

	pdfBytes, err := NewPDFExporter().ExportAssetRisk(&AssetRiskReport{Metadata: testMetadata(), Risks: risks})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))
}

func TestPDFExporter_ExportSBOMAnalysis(t *testing.T) {
	report := &SBOMReport{
		Metadata: testMetadata(),
		Analysis: domain.SBOMThreatAnalysis{
			Format:               "cyclonedx",
			TotalComponents:      3,
			VulnerableComponents: 1,
			ThreatExposure:       41.6,
			CriticalVulnerabilities: []domain.ComponentVulnerability{
				{Component: "log4j-core", Version: "2.14.1", CVEID: "CVE-2021-44228", Severity: domain.SeverityCritical, Confidence: 95},
			},
			AffectedComponents: []domain.Software{{Name: "log4j-core", Version: "2.14.1"}},
			Recommendations:    []string{"CRITICAL: Remediate 1 critical vulnerabilit(ies) in SBOM components immediately"},
		},
	}

	pdfBytes, err := NewPDFExporter().ExportSBOMAnalysis(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))
}

func TestPDFExporter_NilReport(t *testing.T) {
	_, err := NewPDFExporter().ExportAssetRisk(nil)
	assert.Error(t, err)
	_, err = NewPDFExporter().ExportSBOMAnalysis(nil)
	assert.Error(t, err)
}

func TestRiskColor(t *testing.T) {
	assert.Equal(t, red, riskColor(85))
	assert.Equal(t, orange, riskColor(60))
	assert.Equal(t, yellow, riskColor(40))
	assert.Equal(t, green, riskColor(0.1))
	assert.Equal(t, gray, riskColor(0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "abcde...", truncate("abcdefghijkl", 8))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func BenchmarkPDFExporter_ExportAssetRisk(b *testing.B) {
	exporter := NewPDFExporter()
	report := &AssetRiskReport{
		Metadata: testMetadata(),
		Risks: []domain.AssetRisk{
			{AssetID: "srv-1", RiskScore: 72, ThreatCount: 4, Recommendations: []string{"Enable automated patch management for this asset"}},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exporter.ExportAssetRisk(report); err != nil {
			b.Fatal(err)
		}
	}
}
