package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/cve"
)

const seed = `[
  {"id": "CVE-2021-44228", "cvss_score": 10.0, "exploit_available": true, "epss_score": 0.97},
  {"id": "CVE-2024-1234", "cvss_score": 9.8},
  {"id": "bogus"}
]`

func testOptions(t *testing.T) *loaderOptions {
	t.Helper()
	return &loaderOptions{
		dbPath:     filepath.Join(t.TempDir(), "data", "cve.db"),
		maxAge:     24 * time.Hour,
		timeout:    5 * time.Second,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
}

func catalogueCount(t *testing.T, path string) int {
	t.Helper()
	repo, err := cve.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	n, err := repo.GetTotalCount(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunLoader_SeedFile(t *testing.T) {
	opts := testOptions(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	opts.seedFiles = []string{path}

	require.NoError(t, runLoader(context.Background(), opts, zap.NewNop()))
	assert.Equal(t, 2, catalogueCount(t, opts.dbPath))
}

func TestRunLoader_URL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(seed))
	}))
	defer ts.Close()

	opts := testOptions(t)
	opts.feedURL = ts.URL

	require.NoError(t, runLoader(context.Background(), opts, zap.NewNop()))
	assert.Equal(t, 2, catalogueCount(t, opts.dbPath))
}

func TestRunLoader_URLError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer ts.Close()

	opts := testOptions(t)
	opts.feedURL = ts.URL

	err := runLoader(context.Background(), opts, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestRunLoader_SkipsRecentCatalogue(t *testing.T) {
	opts := testOptions(t)
	first := filepath.Join(t.TempDir(), "first.json")
	require.NoError(t, os.WriteFile(first, []byte(`[{"id": "CVE-2020-0001"}]`), 0o600))
	opts.seedFiles = []string{first}
	require.NoError(t, runLoader(context.Background(), opts, zap.NewNop()))

	second := filepath.Join(t.TempDir(), "second.json")
	require.NoError(t, os.WriteFile(second, []byte(seed), 0o600))
	opts.seedFiles = []string{second}
	require.NoError(t, runLoader(context.Background(), opts, zap.NewNop()))
	assert.Equal(t, 1, catalogueCount(t, opts.dbPath), "recent catalogue is left alone")

	opts.force = true
	require.NoError(t, runLoader(context.Background(), opts, zap.NewNop()))
	assert.Equal(t, 3, catalogueCount(t, opts.dbPath))
}

func TestLoaderCmd_RequiresSource(t *testing.T) {
	cmd := newLoaderCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to load")
}
