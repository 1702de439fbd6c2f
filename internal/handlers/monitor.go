package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/deskwatch/deskwatch/internal/api"
	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/monitoring"
)

// MonitorHandler exposes the event generator, issue store and monitor
// settings over HTTP
type MonitorHandler struct {
	generator *monitoring.Generator
	analyst   *monitoring.Analyst
	db        *gorm.DB
}

// NewMonitorHandler creates a monitor handler
func NewMonitorHandler(generator *monitoring.Generator, analyst *monitoring.Analyst, db *gorm.DB) *MonitorHandler {
	return &MonitorHandler{
		generator: generator,
		analyst:   analyst,
		db:        db,
	}
}

// SetupRoutes sets up monitoring routes
func (h *MonitorHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/monitor/status", h.handleStatus)
	mux.HandleFunc("POST /api/monitor/start", h.handleStart)
	mux.HandleFunc("POST /api/monitor/stop", h.handleStop)
	mux.HandleFunc("POST /api/monitor/demo", h.handleDemo)
	mux.HandleFunc("POST /api/monitor/clear", h.handleClear)
	mux.HandleFunc("GET /api/monitor/events", h.handleEvents)
	mux.HandleFunc("GET /api/monitor/flagged", h.handleFlagged)

	mux.HandleFunc("GET /api/issues", h.handleListIssues)
	mux.HandleFunc("GET /api/issues/{issueID}", h.handleGetIssue)
	mux.HandleFunc("PUT /api/issues/{issueID}/status", h.handleUpdateIssueStatus)
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)

	mux.HandleFunc("GET /api/settings/monitor", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings/monitor", h.handleUpdateSettings)
}

// handleStatus handles GET /api/monitor/status
func (h *MonitorHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"running":        h.generator.IsRunning(),
		"events_emitted": h.generator.EmittedCount(),
		"events_flagged": len(h.generator.FlaggedEvents(0)),
	})
}

// handleStart handles POST /api/monitor/start
func (h *MonitorHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	if h.generator.IsRunning() {
		api.RespondErrorWithCode(w, http.StatusConflict, "already_running", "Event generator is already running")
		return
	}
	h.generator.Start()
	log.Printf("Event generator started via API")
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// handleStop handles POST /api/monitor/stop
func (h *MonitorHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.generator.Stop()
	log.Printf("Event generator stopped via API")
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handleDemo handles POST /api/monitor/demo. The demo run finishes on
// its own after the fixed event count.
func (h *MonitorHandler) handleDemo(w http.ResponseWriter, r *http.Request) {
	if h.generator.IsRunning() {
		api.RespondErrorWithCode(w, http.StatusConflict, "already_running", "Event generator is already running")
		return
	}
	h.generator.StartDemo(func() {
		log.Printf("Demo run finished")
	})
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "demo_started",
		"event_count": monitoring.DemoEventCount,
	})
}

// handleClear handles POST /api/monitor/clear
func (h *MonitorHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.generator.ClearEvents()
	h.analyst.ClearAnalyzed()
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleEvents handles GET /api/monitor/events?limit=N
func (h *MonitorHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := h.generator.Events(parseLimit(r, 100))
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// handleFlagged handles GET /api/monitor/flagged?limit=N
func (h *MonitorHandler) handleFlagged(w http.ResponseWriter, r *http.Request) {
	events := h.generator.FlaggedEvents(parseLimit(r, 100))
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// handleListIssues handles GET /api/issues?status=&page=&per_page=
func (h *MonitorHandler) handleListIssues(w http.ResponseWriter, r *http.Request) {
	status := database.IssueStatus(strings.ToLower(r.URL.Query().Get("status")))
	switch status {
	case "", database.IssueStatusInvestigating, database.IssueStatusMitigated, database.IssueStatusResolved:
	default:
		api.RespondError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	p := api.ParsePagination(r)
	issues, err := database.ListIssues(h.db, status, 0)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list issues")
		return
	}

	total := int64(len(issues))
	start := p.Offset()
	if start > len(issues) {
		start = len(issues)
	}
	end := start + p.PerPage
	if end > len(issues) {
		end = len(issues)
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: api.IssuesToListItems(issues[start:end]),
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}

// handleGetIssue handles GET /api/issues/{issueID}
func (h *MonitorHandler) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := database.GetIssue(h.db, r.PathValue("issueID"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			api.RespondError(w, http.StatusNotFound, "Issue not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to load issue")
		return
	}
	api.RespondJSON(w, http.StatusOK, issue)
}

// handleUpdateIssueStatus handles PUT /api/issues/{issueID}/status
func (h *MonitorHandler) handleUpdateIssueStatus(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateIssueStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	issueID := r.PathValue("issueID")
	if err := database.UpdateIssueStatus(h.db, issueID, database.IssueStatus(req.Status)); err != nil {
		if err == gorm.ErrRecordNotFound {
			api.RespondError(w, http.StatusNotFound, "Issue not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to update issue")
		return
	}

	log.Printf("Issue %s status changed to %s", issueID, req.Status)
	api.RespondJSON(w, http.StatusOK, map[string]string{
		"issue_id": issueID,
		"status":   req.Status,
	})
}

// handleListAlerts handles GET /api/alerts?type=&limit=N
func (h *MonitorHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := database.ListAlerts(h.db, r.URL.Query().Get("type"), parseLimit(r, 100))
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleGetSettings handles GET /api/settings/monitor
func (h *MonitorHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := database.GetOrCreateMonitorSettings(h.db)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	api.RespondJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings handles PUT /api/settings/monitor. Only provided
// fields are changed.
func (h *MonitorHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateMonitorSettingsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := database.GetOrCreateMonitorSettings(h.db)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	if req.AutoAnalyze != nil {
		settings.AutoAnalyze = *req.AutoAnalyze
	}
	if req.SlackEnabled != nil {
		settings.SlackEnabled = *req.SlackEnabled
	}
	if req.RetentionDays != nil {
		if *req.RetentionDays < 1 {
			api.RespondError(w, http.StatusBadRequest, "retention_days must be positive")
			return
		}
		settings.RetentionDays = *req.RetentionDays
	}

	if err := database.UpdateMonitorSettings(h.db, settings); err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	api.RespondJSON(w, http.StatusOK, settings)
}

// parseLimit reads a limit query parameter with a fallback
func parseLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
