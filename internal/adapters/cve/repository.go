package cve

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/lcalzada-xor/threatcorr/internal/core/ports"
)

//go:embed schema.sql
var schemaSQL string

// ErrNeverSynced is returned by GetLastSyncTime before the first load.
var ErrNeverSynced = errors.New("CVE catalogue has never been synced")

// SQLiteRepository implements ports.CVERepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.CVERepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the CVE catalogue at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

const selectCVE = `
	SELECT cve_id, description, cvss_score, cvss_vector, published_date,
	       exploit_available, epss_score
	FROM cve_records
`

// GetByID retrieves a specific CVE and its affected products.
func (r *SQLiteRepository) GetByID(ctx context.Context, cveID string) (*domain.CatalogueEntry, error) {
	row := r.db.QueryRowContext(ctx, selectCVE+" WHERE cve_id = ?", strings.ToUpper(cveID))
	cve, err := scanCVE(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get CVE: %w", err)
	}

	affected, err := r.affectedFor(ctx, cve.ID)
	if err != nil {
		return nil, err
	}
	return &domain.CatalogueEntry{CVE: cve, Affected: affected}, nil
}

// FindByIDs returns the known CVEs among ids, preserving the order of ids.
func (r *SQLiteRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.CVE, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = strings.ToUpper(strings.TrimSpace(id))
	}

	query := fmt.Sprintf("%s WHERE cve_id IN (%s)", selectCVE, strings.Join(placeholders, ", "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	found := make(map[string]domain.CVE)
	for rows.Next() {
		cve, err := scanCVE(rows)
		if err != nil {
			return nil, err
		}
		found[cve.ID] = cve
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.CVE
	seen := make(map[string]bool)
	for _, id := range args {
		key := id.(string)
		if cve, ok := found[key]; ok && !seen[key] {
			seen[key] = true
			out = append(out, cve)
		}
	}
	return out, nil
}

// ListAffected loads every affected product in the catalogue.
func (r *SQLiteRepository) ListAffected(ctx context.Context) (map[string][]domain.AffectedProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cve_id, vendor, product, version_start, version_end, version_exact
		FROM cve_affected_products
		ORDER BY cve_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.AffectedProduct)
	for rows.Next() {
		var cveID string
		p, err := scanAffected(rows, &cveID)
		if err != nil {
			return nil, err
		}
		out[cveID] = append(out[cveID], p)
	}
	return out, rows.Err()
}

// UpsertCVE inserts or updates a CVE record and replaces its affected products.
func (r *SQLiteRepository) UpsertCVE(ctx context.Context, entry domain.CatalogueEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cve_records (
			cve_id, description, cvss_score, cvss_vector, published_date,
			exploit_available, epss_score
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cve_id) DO UPDATE SET
			description = excluded.description,
			cvss_score = excluded.cvss_score,
			cvss_vector = excluded.cvss_vector,
			published_date = excluded.published_date,
			exploit_available = excluded.exploit_available,
			epss_score = excluded.epss_score,
			updated_at = CURRENT_TIMESTAMP
	`,
		entry.ID, entry.Description, entry.CVSSScore, entry.CVSSVector, entry.PublishedDate,
		entry.ExploitAvailable, entry.EPSSScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", entry.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cve_affected_products WHERE cve_id = ?", entry.ID); err != nil {
		return fmt.Errorf("failed to clear affected products: %w", err)
	}
	for _, p := range entry.Affected {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cve_affected_products (cve_id, vendor, product, version_start, version_end, version_exact)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entry.ID, p.Vendor, p.Product, p.VersionStart, p.VersionEnd, p.VersionExact)
		if err != nil {
			return fmt.Errorf("failed to insert affected product %s: %w", p.Product, err)
		}
	}

	return tx.Commit()
}

// GetLastSyncTime returns the timestamp of the last catalogue load.
func (r *SQLiteRepository) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	var lastSync sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT last_sync_time FROM cve_sync_status WHERE id = 1").Scan(&lastSync)
	if err != nil {
		return time.Time{}, err
	}
	if lastSync.String == "" {
		return time.Time{}, ErrNeverSynced
	}

	return time.Parse(time.RFC3339, lastSync.String)
}

// UpdateSyncStatus records the outcome of a catalogue load.
func (r *SQLiteRepository) UpdateSyncStatus(ctx context.Context, status domain.CatalogueSyncStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cve_sync_status
		SET last_sync_time = ?,
		    record_count = ?,
		    error_message = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		status.LastSyncTime.UTC().Format(time.RFC3339),
		status.RecordCount,
		status.ErrorMessage,
	)
	return err
}

// GetTotalCount returns the total number of CVE records.
func (r *SQLiteRepository) GetTotalCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cve_records").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) affectedFor(ctx context.Context, cveID string) ([]domain.AffectedProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cve_id, vendor, product, version_start, version_end, version_exact
		FROM cve_affected_products
		WHERE cve_id = ?
		ORDER BY id
	`, cveID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.AffectedProduct
	for rows.Next() {
		var id string
		p, err := scanAffected(rows, &id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCVE(s scanner) (domain.CVE, error) {
	var cve domain.CVE
	var vector, published sql.NullString

	err := s.Scan(
		&cve.ID, &cve.Description, &cve.CVSSScore, &vector, &published,
		&cve.ExploitAvailable, &cve.EPSSScore,
	)
	if err != nil {
		return cve, err
	}

	cve.CVSSVector = vector.String
	cve.PublishedDate = published.String
	return cve, nil
}

func scanAffected(s scanner, cveID *string) (domain.AffectedProduct, error) {
	var p domain.AffectedProduct
	var vendor, start, end, exact sql.NullString

	if err := s.Scan(cveID, &vendor, &p.Product, &start, &end, &exact); err != nil {
		return p, err
	}

	p.Vendor = vendor.String
	p.VersionStart = start.String
	p.VersionEnd = end.String
	p.VersionExact = exact.String
	return p, nil
}
