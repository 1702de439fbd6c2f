package handlers

import (
	"net/http"

	"github.com/deskwatch/deskwatch/internal/api"
	"github.com/deskwatch/deskwatch/internal/database"
)

// HTTPHandler handles the unauthenticated service endpoints
type HTTPHandler struct{}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler() *HTTPHandler {
	return &HTTPHandler{}
}

// SetupRoutes configures service routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
}

// handleHealth returns a simple health check response including
// database reachability
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if db := database.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unreachable"
		}
	} else {
		dbStatus = "not_connected"
	}

	api.RespondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": dbStatus,
		"version":  "1.0.0",
	})
}
