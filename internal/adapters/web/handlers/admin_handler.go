package handlers

import (
	"net/http"
)

// AdminHandler exposes cache administration.
type AdminHandler struct {
	Engine Engine
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(eng Engine) *AdminHandler {
	return &AdminHandler{Engine: eng}
}

// HandleCacheStats returns the entry count of each result cache.
func (h *AdminHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.CacheStats())
}

// HandleClearCache empties both result caches.
func (h *AdminHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.Engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
