package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/reporting"
)

// ReportHandler renders PDF reports.
type ReportHandler struct {
	Engine      Engine
	PDFExporter *reporting.PDFExporter
	GeneratedBy string
	now         func() time.Time
	logger      *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(eng Engine, exporter *reporting.PDFExporter, generatedBy string, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		Engine:      eng,
		PDFExporter: exporter,
		GeneratedBy: generatedBy,
		now:         time.Now,
		logger:      logger.Named("api"),
	}
}

// HandleAssetReport scores the posted assets and returns the result as a PDF.
func (h *ReportHandler) HandleAssetReport(w http.ResponseWriter, r *http.Request) {
	assets, indicators, ok := decodeAssetRisk(w, r)
	if !ok {
		return
	}

	risks := h.Engine.ScoreAssets(r.Context(), assets, indicators)

	report := &reporting.AssetRiskReport{
		Metadata: reporting.ReportMetadata{
			ID:          uuid.NewString(),
			Title:       "Asset Risk Report",
			GeneratedAt: h.now(),
			GeneratedBy: h.GeneratedBy,
		},
		Risks: risks,
	}

	pdfBytes, err := h.PDFExporter.ExportAssetRisk(report)
	if err != nil {
		h.logger.Error("Failed to render asset report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="asset-risk-`+report.Metadata.ID[:8]+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}
