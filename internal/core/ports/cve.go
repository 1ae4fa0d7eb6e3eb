package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// CVERepository defines the interface for the CVE catalogue that feeds the engine.
type CVERepository interface {
	// Get specific CVE by ID; returns nil, nil when unknown.
	GetByID(ctx context.Context, cveID string) (*domain.CatalogueEntry, error)

	// FindByIDs returns the known CVEs among ids, in the order given.
	// Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]domain.CVE, error)

	// ListAffected returns the affected products of every CVE, keyed by CVE id.
	ListAffected(ctx context.Context) (map[string][]domain.AffectedProduct, error)

	UpsertCVE(ctx context.Context, entry domain.CatalogueEntry) error

	// Sync bookkeeping
	UpdateSyncStatus(ctx context.Context, status domain.CatalogueSyncStatus) error
	GetLastSyncTime(ctx context.Context) (time.Time, error)

	// Utility
	GetTotalCount(ctx context.Context) (int, error)
	Close() error
}
