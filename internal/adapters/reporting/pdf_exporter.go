package reporting

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/risk"
)

// ReportMetadata describes a generated report.
type ReportMetadata struct {
	ID          string
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
}

// AssetRiskReport is the input of ExportAssetRisk.
type AssetRiskReport struct {
	Metadata ReportMetadata
	Risks    []domain.AssetRisk
}

// SBOMReport is the input of ExportSBOMAnalysis.
type SBOMReport struct {
	Metadata ReportMetadata
	Analysis domain.SBOMThreatAnalysis
}

// PDFExporter exports risk results to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportAssetRisk renders the asset risk assessments, highest risk first.
func (e *PDFExporter) ExportAssetRisk(report *AssetRiskReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	risks := make([]domain.AssetRisk, len(report.Risks))
	copy(risks, report.Risks)
	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].RiskScore > risks[j].RiskScore
	})

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report.Metadata)
	e.addRiskScore(pdf, peakScore(risks))
	e.addAssetSummary(pdf, risks)
	e.addAssetTable(pdf, risks)
	e.addAssetRecommendations(pdf, risks)
	e.addFooter(pdf, report.Metadata)

	return output(pdf)
}

// ExportSBOMAnalysis renders an SBOM threat analysis.
func (e *PDFExporter) ExportSBOMAnalysis(report *SBOMReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}
	a := report.Analysis

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report.Metadata)
	e.addRiskScore(pdf, a.ThreatExposure)

	e.addSection(pdf, "Component Overview")
	e.addStats(pdf, []stat{
		{"Format", a.Format, blue},
		{"Components", fmt.Sprintf("%d", a.TotalComponents), blue},
		{"Vulnerable", fmt.Sprintf("%d", a.VulnerableComponents), orange},
		{"Critical Findings", fmt.Sprintf("%d", len(a.CriticalVulnerabilities)), red},
		{"High Findings", fmt.Sprintf("%d", len(a.HighVulnerabilities)), orange},
		{"Affected Components", fmt.Sprintf("%d", len(a.AffectedComponents)), blue},
	})

	findings := append(append([]domain.ComponentVulnerability{}, a.CriticalVulnerabilities...), a.HighVulnerabilities...)
	e.addFindingsTable(pdf, findings)
	e.addList(pdf, "Recommendations", a.Recommendations)
	e.addFooter(pdf, report.Metadata)

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func peakScore(risks []domain.AssetRisk) float64 {
	if len(risks) == 0 {
		return 0
	}
	return risks[0].RiskScore
}

type rgb [3]int

var (
	red    = rgb{220, 53, 69}
	orange = rgb{255, 149, 0}
	yellow = rgb{255, 204, 0}
	green  = rgb{52, 199, 89}
	blue   = rgb{0, 102, 204}
	gray   = rgb{150, 150, 150}
)

type stat struct {
	label string
	value string
	color rgb
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, meta ReportMetadata) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, meta.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", meta.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

// addRiskScore adds the prominent 0-100 score box
func (e *PDFExporter) addRiskScore(pdf *gofpdf.Fpdf, score float64) {
	c := riskColor(score)
	pdf.SetFillColor(c[0], c[1], c[2])
	pdf.Rect(20, pdf.GetY(), 170, 30, "F")

	y := pdf.GetY()

	pdf.SetFont("Arial", "B", 36)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(25, y+5)
	pdf.CellFormat(80, 20, fmt.Sprintf("%.1f/100", score), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(110, y+8)
	pdf.CellFormat(80, 14, fmt.Sprintf("%s Risk", risk.RiskLevel(score)), "", 0, "L", false, 0, "")

	pdf.SetY(y + 35)
	pdf.Ln(5)
}

func riskColor(score float64) rgb {
	switch risk.RiskLevel(score) {
	case "Critical":
		return red
	case "High":
		return orange
	case "Medium":
		return yellow
	case "Low":
		return green
	default:
		return gray
	}
}

func severityColor(s domain.Severity) rgb {
	switch {
	case s.Is(domain.SeverityCritical):
		return red
	case s.Is(domain.SeverityHigh):
		return orange
	case s.Is(domain.SeverityMedium):
		return yellow
	default:
		return green
	}
}

func (e *PDFExporter) addSection(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// addStats lays stats out in two columns
func (e *PDFExporter) addStats(pdf *gofpdf.Fpdf, stats []stat) {
	colWidth := 85.0
	for i, s := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, s.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(s.color[0], s.color[1], s.color[2])
		pdf.CellFormat(colWidth-50, 7, s.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	if len(stats)%2 == 1 {
		pdf.Ln(7)
	}
	pdf.Ln(10)
}

func (e *PDFExporter) addAssetSummary(pdf *gofpdf.Fpdf, risks []domain.AssetRisk) {
	var threats, critical, atRisk int
	levels := map[string]int{}
	for _, r := range risks {
		threats += r.ThreatCount
		critical += r.CriticalThreats
		if r.RiskScore > 0 {
			atRisk++
		}
		levels[risk.RiskLevel(r.RiskScore)]++
	}

	e.addSection(pdf, "Risk Overview")
	e.addStats(pdf, []stat{
		{"Assets", fmt.Sprintf("%d", len(risks)), blue},
		{"Assets At Risk", fmt.Sprintf("%d", atRisk), blue},
		{"Threat Matches", fmt.Sprintf("%d", threats), blue},
		{"Critical Threats", fmt.Sprintf("%d", critical), red},
		{"Critical", fmt.Sprintf("%d", levels["Critical"]), red},
		{"High", fmt.Sprintf("%d", levels["High"]), orange},
		{"Medium", fmt.Sprintf("%d", levels["Medium"]), yellow},
		{"Low", fmt.Sprintf("%d", levels["Low"]), green},
	})
}

// addAssetTable adds the per-asset table
func (e *PDFExporter) addAssetTable(pdf *gofpdf.Fpdf, risks []domain.AssetRisk) {
	e.addSection(pdf, "Assets By Risk")

	if len(risks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No assets assessed", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(55, 8, "Asset", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Level", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Threats", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "Critical", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "Days", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, r := range risks {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		c := riskColor(r.RiskScore)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(55, 7, truncate(r.AssetID, 32), "1", 0, "L", false, 0, "")

		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(25, 7, fmt.Sprintf("%.1f", r.RiskScore), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, risk.RiskLevel(r.RiskScore), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", r.ThreatCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", r.CriticalThreats), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", r.ExposureWindowDays), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

// addAssetRecommendations lists recommendations of the riskiest assets
func (e *PDFExporter) addAssetRecommendations(pdf *gofpdf.Fpdf, risks []domain.AssetRisk) {
	e.addSection(pdf, "Priority Recommendations")

	shown := 0
	for _, r := range risks {
		if shown >= 5 {
			break
		}
		if len(r.Recommendations) == 0 {
			continue
		}
		shown++

		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		c := riskColor(r.RiskScore)
		pdf.SetFillColor(c[0], c[1], c[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(25, 6, risk.RiskLevel(r.RiskScore), "", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 6, "  "+r.AssetID, "", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(60, 60, 60)
		for _, rec := range r.Recommendations {
			pdf.CellFormat(5, 5, "", "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 5, "- "+rec, "", "L", false)
		}
		pdf.Ln(4)
	}

	if shown == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No action required", "", 1, "L", false, 0, "")
	}
}

func (e *PDFExporter) addFindingsTable(pdf *gofpdf.Fpdf, findings []domain.ComponentVulnerability) {
	e.addSection(pdf, "Critical And High Findings")

	if len(findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No critical or high findings", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(60, 8, "Component", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Version", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "CVE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(10, 8, "Conf", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, f := range findings {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		c := severityColor(f.Severity)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(60, 7, truncate(f.Component, 34), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, truncate(f.Version, 16), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, f.CVEID, "1", 0, "C", false, 0, "")

		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(25, 7, string(f.Severity), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(10, 7, fmt.Sprintf("%d", f.Confidence), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

func (e *PDFExporter) addList(pdf *gofpdf.Fpdf, title string, lines []string) {
	e.addSection(pdf, title)
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, l := range lines {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, "- "+l, "", "L", false)
	}
	pdf.Ln(4)
}

// addFooter adds the report footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, meta ReportMetadata) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	footer := fmt.Sprintf("Generated by %s | Report ID: %s", meta.GeneratedBy, truncate(meta.ID, 8))
	pdf.CellFormat(0, 5, footer, "", 1, "C", false, 0, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
