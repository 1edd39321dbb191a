package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/services"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

// CatalogHandler relays the featured playlists query for the caller's session.
type CatalogHandler struct {
	proxy   *services.CatalogProxy
	cookies session.Cookies
	logger  *log.Logger
}

// NewCatalogHandler creates a [CatalogHandler].
func NewCatalogHandler(proxy *services.CatalogProxy, cookies session.Cookies, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{proxy: proxy, cookies: cookies, logger: logger}
}

func (h *CatalogHandler) Routes() []string {
	return []string{"/catalog/query", "/api/playlists"}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	result, err := h.proxy.Query(r.Context(), h.cookies.Read(r), r.URL.Query().Get("search"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, shared.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		h.logger.Error("catalog query failed", "status", shared.StatusOf(err), "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch playlists")
	}
}
