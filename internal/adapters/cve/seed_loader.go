package cve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

// SeedLoader loads CVE records from JSON files into the catalogue.
type SeedLoader struct {
	repo   ports.CVERepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSeedLoader creates a new seed loader.
func NewSeedLoader(repo ports.CVERepository, logger *zap.Logger) *SeedLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedLoader{repo: repo, logger: logger.Named("cve_seed"), now: time.Now}
}

// LoadResult summarizes one seed file.
type LoadResult struct {
	Loaded int
	Failed int
}

// LoadFromFile validates and upserts every record of a JSON seed file.
// Invalid records are logged and counted, not fatal.
func (s *SeedLoader) LoadFromFile(ctx context.Context, path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	defer f.Close()
	return s.LoadFromReader(ctx, path, f)
}

// LoadFromReader loads a JSON seed document from r. source names it in logs.
func (s *SeedLoader) LoadFromReader(ctx context.Context, source string, r io.Reader) (LoadResult, error) {
	s.logger.Info("Loading CVEs", zap.String("source", source))

	var entries []domain.CatalogueEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return LoadResult{}, fmt.Errorf("failed to parse seed file: %w", err)
	}

	var res LoadResult
	for _, entry := range entries {
		cve, err := domain.NewCVE(entry.CVE)
		if err != nil {
			s.logger.Warn("Skipping invalid CVE", zap.String("cve_id", entry.ID), zap.Error(err))
			res.Failed++
			continue
		}
		entry.CVE = cve

		if err := s.repo.UpsertCVE(ctx, entry); err != nil {
			s.logger.Error("Failed to load CVE", zap.String("cve_id", entry.ID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Loaded++
	}

	s.logger.Info("Seed file loaded",
		zap.String("source", source),
		zap.Int("loaded", res.Loaded),
		zap.Int("failed", res.Failed))

	status := domain.CatalogueSyncStatus{
		LastSyncTime: s.now(),
		RecordCount:  res.Loaded,
	}
	if res.Failed > 0 {
		status.ErrorMessage = fmt.Sprintf("%d records failed to load", res.Failed)
	}
	if err := s.repo.UpdateSyncStatus(ctx, status); err != nil {
		return res, fmt.Errorf("failed to update sync status: %w", err)
	}

	return res, nil
}

// LoadFromMultipleFiles loads every file, continuing past files that fail.
func (s *SeedLoader) LoadFromMultipleFiles(ctx context.Context, paths []string) (LoadResult, error) {
	var total LoadResult
	var filesLoaded int

	for _, path := range paths {
		res, err := s.LoadFromFile(ctx, path)
		if err != nil {
			s.logger.Error("Failed to load seed file", zap.String("file", path), zap.Error(err))
			continue
		}
		filesLoaded++
		total.Loaded += res.Loaded
		total.Failed += res.Failed
	}

	s.logger.Info("Seed load complete", zap.Int("files_loaded", filesLoaded), zap.Int("files_total", len(paths)))
	if filesLoaded == 0 && len(paths) > 0 {
		return total, fmt.Errorf("no seed file could be loaded")
	}
	return total, nil
}
