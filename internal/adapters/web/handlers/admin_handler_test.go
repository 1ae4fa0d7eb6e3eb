package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lcalzada-xor/threatcorr/internal/adapters/web"
	"github.com/lcalzada-xor/threatcorr/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/threatcorr/internal/core/services/engine"
)

func TestAdminHandler(t *testing.T) {
	eng := new(web.MockEngine)
	h := handlers.NewAdminHandler(eng)

	eng.On("CacheStats").Return(engine.CacheStats{Correlations: 3, AssetRisks: 1}).Once()
	eng.On("ClearCache").Return().Once()

	rec := httptest.NewRecorder()
	h.HandleCacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"correlations":3,"asset_risks":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.HandleClearCache(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	eng.AssertExpectations(t)
}
