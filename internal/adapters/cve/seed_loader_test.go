package cve

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `[
  {
    "id": "cve-2021-44228",
    "description": "Log4Shell",
    "cvss_score": 10.0,
    "published_date": "2021-12-10",
    "exploit_available": true,
    "epss_score": 0.97,
    "affected": [{"vendor": "apache", "product": "log4j-core", "version_start": "2.0.0", "version_end": "2.14.1"}]
  },
  {"id": "CVE-2024-1234", "cvss_score": 9.8},
  {"id": "not-a-cve", "cvss_score": 5.0},
  {"id": "CVE-2024-5678", "cvss_score": 11.0}
]`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedLoader_LoadFromFile(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	loader := NewSeedLoader(repo, nil)
	syncTime := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return syncTime }

	res, err := loader.LoadFromFile(ctx, writeSeed(t, seedJSON))
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Loaded: 2, Failed: 2}, res)

	entry, err := repo.GetByID(ctx, "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "CVE-2021-44228", entry.ID, "ids are normalized on load")
	require.Len(t, entry.Affected, 1)

	last, err := repo.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, syncTime.Equal(last))
}

func TestSeedLoader_Errors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	loader := NewSeedLoader(repo, nil)

	_, err := loader.LoadFromFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loader.LoadFromFile(ctx, writeSeed(t, "{not json"))
	assert.Error(t, err)

	_, err = loader.LoadFromMultipleFiles(ctx, []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	total, err := loader.LoadFromMultipleFiles(ctx, []string{
		filepath.Join(t.TempDir(), "missing.json"),
		writeSeed(t, seedJSON),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total.Loaded)
}

func TestSeedLoader_LoadFromReader(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	loader := NewSeedLoader(repo, nil)

	res, err := loader.LoadFromReader(ctx, "inline", strings.NewReader(`[{"id": "CVE-2023-0001", "cvss_score": 4.3}]`))
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Loaded: 1}, res)

	count, err := repo.GetTotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
