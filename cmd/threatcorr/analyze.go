package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/cve"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/reporting"
	"github.com/lcalzada-xor/threatcorr/internal/app"
	"github.com/lcalzada-xor/threatcorr/internal/config"
	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/engine"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/export"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/sbom"
)

// analyzeOptions are the flags shared by the analyze subcommands.
type analyzeOptions struct {
	*rootOptions
	input  string
	pretty bool
	format string
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a one-shot analysis and print the result as JSON",
	}
	cmd.PersistentFlags().StringVarP(&opts.input, "input", "i", "", "input file, or - for stdin")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	cmd.PersistentFlags().StringVar(&opts.format, "format", string(export.FormatJSON), "output format for correlate and assets: json or csv")
	_ = cmd.MarkPersistentFlagRequired("input")

	cmd.AddCommand(
		newCorrelateCmd(opts),
		newAssetsCmd(opts),
		newSBOMCmd(opts),
		newPredictCmd(opts),
	)
	return cmd
}

func (o *analyzeOptions) readInput(cmd *cobra.Command) ([]byte, error) {
	if o.input == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(o.input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func (o *analyzeOptions) decodeInput(cmd *cobra.Command, v any) error {
	data, err := o.readInput(cmd)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", o.input, err)
	}
	return nil
}

func (o *analyzeOptions) writeOutput(cmd *cobra.Command, v any) error {
	if o.pretty {
		return export.ExportJSON(cmd.OutOrStdout(), v)
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
}

// outputFormat validates --format before any work is done.
func (o *analyzeOptions) outputFormat() (export.Format, error) {
	return export.ParseFormat(o.format)
}

// withEngine builds an engine, opening the CVE catalogue when the matcher or
// the input needs it.
func (o *analyzeOptions) withEngine(ctx context.Context, needCatalogue bool, fn func(*engine.ThreatCorrelator, *cve.SQLiteRepository) error) error {
	var repo *cve.SQLiteRepository
	if needCatalogue || o.cfg.Engine.Matcher == config.MatcherCatalogue {
		r, err := cve.NewSQLiteRepository(o.cfg.Storage.CVEDBPath)
		if err != nil {
			return fmt.Errorf("failed to open CVE catalogue: %w", err)
		}
		defer r.Close()
		repo = r
	}

	var eng *engine.ThreatCorrelator
	var err error
	if repo != nil {
		eng, err = app.BuildEngine(ctx, o.cfg.Engine, repo, o.logger)
	} else {
		eng, err = app.BuildEngine(ctx, o.cfg.Engine, nil, o.logger)
	}
	if err != nil {
		return err
	}
	return fn(eng, repo)
}

type correlateInput struct {
	Vulnerabilities []domain.CVE          `json:"vulnerabilities"`
	Threats         []domain.ThreatObject `json:"threats"`
	CVEIDs          []string              `json:"cve_ids"`
}

func newCorrelateCmd(opts *analyzeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate",
		Short: "Correlate CVEs with threat objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			var in correlateInput
			if err := opts.decodeInput(cmd, &in); err != nil {
				return err
			}
			vulns, err := domain.NewCVEs(in.Vulnerabilities)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return opts.withEngine(ctx, len(in.CVEIDs) > 0, func(eng *engine.ThreatCorrelator, repo *cve.SQLiteRepository) error {
				if len(in.CVEIDs) > 0 {
					found, err := repo.FindByIDs(ctx, in.CVEIDs)
					if err != nil {
						return fmt.Errorf("CVE catalogue lookup failed: %w", err)
					}
					if len(found) < len(in.CVEIDs) {
						opts.logger.Warn("Some CVE ids are not in the catalogue",
							zap.Int("requested", len(in.CVEIDs)),
							zap.Int("found", len(found)))
					}
					vulns = appendMissing(vulns, found)
				}
				results := eng.Correlate(ctx, vulns, domain.NormalizeThreatObjects(in.Threats))
				if format == export.FormatCSV {
					return export.ExportCorrelationsCSV(cmd.OutOrStdout(), results)
				}
				return opts.writeOutput(cmd, results)
			})
		},
	}
}

func appendMissing(vulns, extra []domain.CVE) []domain.CVE {
	seen := make(map[string]bool, len(vulns))
	for _, v := range vulns {
		seen[v.ID] = true
	}
	for _, v := range extra {
		if !seen[v.ID] {
			seen[v.ID] = true
			vulns = append(vulns, v)
		}
	}
	return vulns
}

type assetsInput struct {
	Assets     []domain.Asset           `json:"assets"`
	Indicators []domain.ThreatIndicator `json:"indicators"`
}

func newAssetsCmd(opts *analyzeOptions) *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Score asset risk against threat indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			var in assetsInput
			if err := opts.decodeInput(cmd, &in); err != nil {
				return err
			}
			assets, err := domain.NewAssets(in.Assets)
			if err != nil {
				return err
			}
			indicators, err := domain.NewThreatIndicators(in.Indicators)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return opts.withEngine(ctx, false, func(eng *engine.ThreatCorrelator, _ *cve.SQLiteRepository) error {
				risks := eng.ScoreAssets(ctx, assets, indicators)
				if pdfPath != "" {
					if err := writeAssetReport(pdfPath, risks, opts.cfg.Logger.ServiceName); err != nil {
						return err
					}
				}
				if format == export.FormatCSV {
					return export.ExportAssetRisksCSV(cmd.OutOrStdout(), risks)
				}
				return opts.writeOutput(cmd, risks)
			})
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also write a PDF report to this path")
	return cmd
}

func writeAssetReport(path string, risks []domain.AssetRisk, generatedBy string) error {
	pdfBytes, err := reporting.NewPDFExporter().ExportAssetRisk(&reporting.AssetRiskReport{
		Metadata: reporting.ReportMetadata{
			ID:          uuid.NewString(),
			Title:       "Asset Risk Report",
			GeneratedAt: time.Now(),
			GeneratedBy: generatedBy,
		},
		Risks: risks,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF report: %w", err)
	}
	return nil
}

func newSBOMCmd(opts *analyzeOptions) *cobra.Command {
	var indicatorsPath string

	cmd := &cobra.Command{
		Use:   "sbom",
		Short: "Measure the threat exposure of an SPDX or CycloneDX document",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.readInput(cmd)
			if err != nil {
				return err
			}
			doc, err := sbom.Parse(data)
			if err != nil {
				return err
			}

			var raw []domain.ThreatIndicator
			if indicatorsPath != "" {
				b, err := os.ReadFile(indicatorsPath)
				if err != nil {
					return fmt.Errorf("failed to read indicators: %w", err)
				}
				if err := json.Unmarshal(b, &raw); err != nil {
					return fmt.Errorf("failed to parse indicators %s: %w", indicatorsPath, err)
				}
			}
			indicators, err := domain.NewThreatIndicators(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return opts.withEngine(ctx, false, func(eng *engine.ThreatCorrelator, _ *cve.SQLiteRepository) error {
				return opts.writeOutput(cmd, eng.AnalyzeSBOM(ctx, doc, indicators))
			})
		},
	}

	cmd.Flags().StringVar(&indicatorsPath, "indicators", "", "JSON array of threat indicators")
	return cmd
}

type predictInput struct {
	CVE     domain.CVE            `json:"cve"`
	Threats []domain.ThreatObject `json:"threats"`
}

type predictOutput struct {
	CVEID      string  `json:"cve_id"`
	Likelihood float64 `json:"likelihood"`
}

func newPredictCmd(opts *analyzeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Estimate the exploitation likelihood of a CVE",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in predictInput
			if err := opts.decodeInput(cmd, &in); err != nil {
				return err
			}
			c, err := domain.NewCVE(in.CVE)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return opts.withEngine(ctx, false, func(eng *engine.ThreatCorrelator, _ *cve.SQLiteRepository) error {
				likelihood := eng.PredictExploitLikelihood(ctx, c, domain.NormalizeThreatObjects(in.Threats))
				return opts.writeOutput(cmd, predictOutput{CVEID: c.ID, Likelihood: likelihood})
			})
		},
	}
}
