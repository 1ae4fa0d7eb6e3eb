package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// SQLiteStore implements ports.ResultStore using GORM and SQLite.
type SQLiteStore struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string
}

var _ ports.ResultStore = (*SQLiteStore)(nil)

// RunModel is the GORM model for analysis runs.
type RunModel struct {
	ID        string `gorm:"primaryKey"`
	Kind      string `gorm:"index"`
	ItemCount int
	CreatedAt time.Time `gorm:"index"`
}

// CorrelationModel stores one ThreatCorrelation of a run.
type CorrelationModel struct {
	ID                 uint   `gorm:"primaryKey"`
	RunID              string `gorm:"index"`
	CVEID              string `gorm:"index"`
	CorrelationScore   float64
	ActiveExploitation bool
	ExploitAvailable   bool
	ExploitLikelihood  float64
	ThreatIndicators   []string `gorm:"serializer:json"`
	ThreatActors       []string `gorm:"serializer:json"`
	Campaigns          []string `gorm:"serializer:json"`
	AttackTechniques   []string `gorm:"serializer:json"`
}

// AssetRiskModel stores one AssetRisk of a run.
type AssetRiskModel struct {
	ID                 uint   `gorm:"primaryKey"`
	RunID              string `gorm:"index"`
	AssetID            string `gorm:"index"`
	RiskScore          float64
	ThreatCount        int
	CriticalThreats    int
	ExposureWindowDays int
	VulnerableSoftware []domain.Software `gorm:"serializer:json"`
	Recommendations    []string          `gorm:"serializer:json"`
	CreatedAt          time.Time         `gorm:"index"`
}

// SBOMAnalysisModel stores an SBOM analysis. Findings are kept as JSON.
type SBOMAnalysisModel struct {
	ID                      uint   `gorm:"primaryKey"`
	RunID                   string `gorm:"uniqueIndex"`
	Format                  string
	TotalComponents         int
	VulnerableComponents    int
	ThreatExposure          float64
	CriticalVulnerabilities []domain.ComponentVulnerability `gorm:"serializer:json"`
	HighVulnerabilities     []domain.ComponentVulnerability `gorm:"serializer:json"`
	AffectedComponents      []domain.Software               `gorm:"serializer:json"`
	Recommendations         []string                        `gorm:"serializer:json"`
}

// NewSQLiteStore opens the results database, installs tracing and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&RunModel{}, &CorrelationModel{}, &AssetRiskModel{}, &SBOMAnalysisModel{}); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// SaveCorrelations stores correlations under a new run.
func (s *SQLiteStore) SaveCorrelations(ctx context.Context, correlations []domain.ThreatCorrelation) (domain.AnalysisRun, error) {
	run := s.newRun(domain.RunCorrelation, len(correlations))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRunModel(run)).Error; err != nil {
			return err
		}
		if len(correlations) == 0 {
			return nil
		}
		models := make([]CorrelationModel, 0, len(correlations))
		for _, c := range correlations {
			models = append(models, toCorrelationModel(run.ID, c))
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("failed to save correlations: %w", err)
	}
	return run, nil
}

// SaveAssetRisks stores asset risk assessments under a new run.
func (s *SQLiteStore) SaveAssetRisks(ctx context.Context, risks []domain.AssetRisk) (domain.AnalysisRun, error) {
	run := s.newRun(domain.RunAssetRisk, len(risks))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRunModel(run)).Error; err != nil {
			return err
		}
		if len(risks) == 0 {
			return nil
		}
		models := make([]AssetRiskModel, 0, len(risks))
		for _, r := range risks {
			models = append(models, toAssetRiskModel(run, r))
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("failed to save asset risks: %w", err)
	}
	return run, nil
}

// SaveSBOMAnalysis stores an SBOM analysis under a new run.
func (s *SQLiteStore) SaveSBOMAnalysis(ctx context.Context, analysis domain.SBOMThreatAnalysis) (domain.AnalysisRun, error) {
	run := s.newRun(domain.RunSBOM, analysis.TotalComponents)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRunModel(run)).Error; err != nil {
			return err
		}
		model := toSBOMModel(run.ID, analysis)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("failed to save SBOM analysis: %w", err)
	}
	return run, nil
}

// LatestAssetRisk returns the most recent assessment of assetID, or nil.
func (s *SQLiteStore) LatestAssetRisk(ctx context.Context, assetID string) (*domain.AssetRisk, error) {
	var model AssetRiskModel
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	risk := toAssetRisk(model)
	return &risk, nil
}

// CorrelationsForRun returns the correlations stored under runID.
func (s *SQLiteStore) CorrelationsForRun(ctx context.Context, runID string) ([]domain.ThreatCorrelation, error) {
	var models []CorrelationModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ThreatCorrelation, 0, len(models))
	for _, m := range models {
		out = append(out, toCorrelation(m))
	}
	return out, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit means 50.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []RunModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	runs := make([]domain.AnalysisRun, 0, len(models))
	for _, m := range models {
		runs = append(runs, toRun(m))
	}
	return runs, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) newRun(kind domain.RunKind, items int) domain.AnalysisRun {
	return domain.AnalysisRun{
		ID:        s.newID(),
		Kind:      kind,
		ItemCount: items,
		CreatedAt: s.now().UTC(),
	}
}
