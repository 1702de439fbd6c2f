package handlers

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/deskwatch/deskwatch/internal/api"
	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/kb"
	"github.com/deskwatch/deskwatch/internal/pipeline"
	"github.com/deskwatch/deskwatch/internal/utils"
)

// recentTicketWindow bounds the history listing endpoint
const recentTicketWindow = 30 * 24 * time.Hour

// TicketHandler exposes the ticket pipeline and KB retrieval over HTTP
type TicketHandler struct {
	processor *pipeline.Processor
	retriever *kb.Retriever
	history   *kb.TicketHistory
	db        *gorm.DB
}

// NewTicketHandler creates a ticket handler
func NewTicketHandler(processor *pipeline.Processor, retriever *kb.Retriever, history *kb.TicketHistory, db *gorm.DB) *TicketHandler {
	return &TicketHandler{
		processor: processor,
		retriever: retriever,
		history:   history,
		db:        db,
	}
}

// SetupRoutes sets up ticket routes
func (h *TicketHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tickets/process", h.handleProcess)
	mux.HandleFunc("GET /api/tickets", h.handleListTickets)
	mux.HandleFunc("GET /api/tickets/stats", h.handleStats)
	mux.HandleFunc("GET /api/tickets/samples", h.handleSamples)
	mux.HandleFunc("POST /api/kb/search", h.handleKBSearch)
}

// handleProcess handles POST /api/tickets/process
func (h *TicketHandler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req api.ProcessTicketRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	tier := pipeline.AccountTier(req.AccountTier)
	if req.AccountTier == "" {
		tier = pipeline.TierFree
	}

	ticket := pipeline.SupportTicket{
		TicketID:      req.TicketID,
		CreatedAt:     time.Now(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		AccountTier:   tier,
		Product:       req.Product,
		Subject:       req.Subject,
		Body:          req.Body,
		Attachments:   req.Attachments,
	}

	result, err := h.processor.Process(ticket)
	if err != nil {
		log.Printf("Ticket %s processing failed: %v", req.TicketID, err)
		api.RespondError(w, http.StatusInternalServerError, "Ticket processing failed")
		return
	}

	log.Printf("Processed ticket %s: %s/%s -> %s (subject: %s)",
		result.TicketID, result.Triage.Urgency, result.Triage.Category,
		result.Routing.Team, utils.RedactingLogText(req.Subject, 80))
	api.RespondJSON(w, http.StatusOK, result)
}

// handleListTickets handles GET /api/tickets?limit=N
func (h *TicketHandler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	records, err := database.RecentTicketRecords(h.db, time.Now().Add(-recentTicketWindow), parseLimit(r, 100))
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list tickets")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": api.TicketsToListItems(records),
		"count":   len(records),
	})
}

// handleStats handles GET /api/tickets/stats
func (h *TicketHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := database.GetTicketStats(h.db)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	api.RespondJSON(w, http.StatusOK, stats)
}

// handleSamples handles GET /api/tickets/samples
func (h *TicketHandler) handleSamples(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": SampleTickets(),
	})
}

// handleKBSearch handles POST /api/kb/search
func (h *TicketHandler) handleKBSearch(w http.ResponseWriter, r *http.Request) {
	var req api.KBSearchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	hits, err := h.retriever.Search(req.Query, req.TopK)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "KB search failed")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"hits":       hits,
		"count":      len(hits),
		"index_size": h.retriever.Size(),
	})
}

// SampleTickets returns canned tickets for exercising the pipeline
// without a ticketing system attached
func SampleTickets() []pipeline.SupportTicket {
	now := time.Now()
	return []pipeline.SupportTicket{
		{
			TicketID:      "TICK-9001",
			CreatedAt:     now,
			CustomerName:  "Maya Chen",
			CustomerEmail: "maya.chen@acmecorp.example",
			AccountTier:   pipeline.TierEnterprise,
			Product:       "api",
			Subject:       "Production API returning 503 errors",
			Body:          "Our production integration has been failing with 503 responses for the last 20 minutes. This is blocking checkout for our customers.",
		},
		{
			TicketID:      "TICK-9002",
			CreatedAt:     now,
			CustomerName:  "Jordan Velasquez",
			CustomerEmail: "jordan.v@smallshop.example",
			AccountTier:   pipeline.TierStarter,
			Product:       "billing",
			Subject:       "Charged twice for March invoice",
			Body:          "I see two identical charges on my statement for the March invoice INV-2024-0312. Please refund the duplicate.",
		},
		{
			TicketID:      "TICK-9003",
			CreatedAt:     now,
			CustomerName:  "Sam Okafor",
			CustomerEmail: "sam@startuplab.example",
			AccountTier:   pipeline.TierProfessional,
			Product:       "dashboard",
			Subject:       "Feature request: export charts as PNG",
			Body:          "It would be great if dashboard charts could be exported as PNG images for our weekly reports.",
		},
		{
			TicketID:      "TICK-9004",
			CreatedAt:     now,
			CustomerName:  "Priya Nair",
			CustomerEmail: "priya.nair@enterprisey.example",
			AccountTier:   pipeline.TierEnterprise,
			Product:       "sso",
			Subject:       "Suspicious login attempts on our account",
			Body:          "We noticed repeated failed login attempts from unfamiliar IP ranges on our admin accounts. Can you check whether our account security has been compromised?",
		},
	}
}
