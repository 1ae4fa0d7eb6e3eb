package cve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "cve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func log4shell() domain.CatalogueEntry {
	return domain.CatalogueEntry{
		CVE: domain.CVE{
			ID:               "CVE-2021-44228",
			Description:      "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP endpoints",
			CVSSScore:        10.0,
			CVSSVector:       "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H",
			PublishedDate:    "2021-12-10T10:15:09Z",
			ExploitAvailable: true,
			EPSSScore:        0.97,
		},
		Affected: []domain.AffectedProduct{
			{Vendor: "apache", Product: "log4j-core", VersionStart: "2.0.0", VersionEnd: "2.14.1"},
		},
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("UpsertCVE", func(t *testing.T) {
		require.NoError(t, repo.UpsertCVE(ctx, log4shell()))

		retrieved, err := repo.GetByID(ctx, "cve-2021-44228")
		require.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, log4shell(), *retrieved)
	})

	t.Run("UpsertReplacesAffectedProducts", func(t *testing.T) {
		entry := log4shell()
		entry.EPSSScore = 0.5
		entry.Affected = []domain.AffectedProduct{{Product: "log4j-core", VersionExact: "2.14.1"}}
		require.NoError(t, repo.UpsertCVE(ctx, entry))

		retrieved, err := repo.GetByID(ctx, "CVE-2021-44228")
		require.NoError(t, err)
		assert.Equal(t, 0.5, retrieved.EPSSScore)
		assert.Equal(t, entry.Affected, retrieved.Affected)

		count, err := repo.GetTotalCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("GetByIDUnknown", func(t *testing.T) {
		retrieved, err := repo.GetByID(ctx, "CVE-1999-0001")
		assert.NoError(t, err)
		assert.Nil(t, retrieved)
	})

	t.Run("FindByIDs", func(t *testing.T) {
		require.NoError(t, repo.UpsertCVE(ctx, domain.CatalogueEntry{CVE: domain.CVE{ID: "CVE-2024-1234", CVSSScore: 9.8}}))

		found, err := repo.FindByIDs(ctx, []string{"CVE-2024-1234", "CVE-2000-0000", "cve-2021-44228", "CVE-2024-1234"})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "CVE-2024-1234", found[0].ID)
		assert.Equal(t, "CVE-2021-44228", found[1].ID)

		none, err := repo.FindByIDs(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ListAffected", func(t *testing.T) {
		affected, err := repo.ListAffected(ctx)
		require.NoError(t, err)
		assert.Len(t, affected, 1)
		assert.Equal(t, "log4j-core", affected["CVE-2021-44228"][0].Product)
	})

	t.Run("SyncStatus", func(t *testing.T) {
		fresh := newTestRepo(t)
		_, err := fresh.GetLastSyncTime(ctx)
		assert.ErrorIs(t, err, ErrNeverSynced)

		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, repo.UpdateSyncStatus(ctx, domain.CatalogueSyncStatus{LastSyncTime: now, RecordCount: 2}))
		last, err := repo.GetLastSyncTime(ctx)
		require.NoError(t, err)
		assert.True(t, now.Equal(last))
	})
}
