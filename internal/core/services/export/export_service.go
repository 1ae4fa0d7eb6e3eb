package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// Format is an output encoding supported by the exporters.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ExportJSON writes v as indented JSON.
func ExportJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// ExportCorrelationsCSV writes correlations as CSV with headers.
// List columns are joined with ';'.
func ExportCorrelationsCSV(w io.Writer, correlations []domain.ThreatCorrelation) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"CVEID", "CorrelationScore", "ActiveExploitation", "ExploitAvailable",
		"ExploitLikelihood", "ThreatIndicators", "ThreatActors", "Campaigns", "AttackTechniques",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, c := range correlations {
		row := []string{
			c.CVEID,
			formatFloat(c.CorrelationScore),
			strconv.FormatBool(c.ActiveExploitation),
			strconv.FormatBool(c.ExploitAvailable),
			formatFloat(c.ExploitLikelihood),
			strings.Join(c.ThreatIndicators, ";"),
			strings.Join(c.ThreatActors, ";"),
			strings.Join(c.Campaigns, ";"),
			strings.Join(c.AttackTechniques, ";"),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportAssetRisksCSV writes asset risks as CSV with headers.
func ExportAssetRisksCSV(w io.Writer, risks []domain.AssetRisk) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"AssetID", "RiskScore", "ThreatCount", "CriticalThreats",
		"ExposureWindowDays", "VulnerableSoftware", "Recommendations",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, r := range risks {
		software := make([]string, 0, len(r.VulnerableSoftware))
		for _, s := range r.VulnerableSoftware {
			software = append(software, s.Name+"@"+s.Version)
		}
		row := []string{
			r.AssetID,
			formatFloat(r.RiskScore),
			strconv.Itoa(r.ThreatCount),
			strconv.Itoa(r.CriticalThreats),
			strconv.Itoa(r.ExposureWindowDays),
			strings.Join(software, ";"),
			strings.Join(r.Recommendations, ";"),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
