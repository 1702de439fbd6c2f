package api

import (
	"time"

	"github.com/deskwatch/deskwatch/internal/database"
)

// ========== Ticket Types ==========

// ProcessTicketRequest is the request body for POST /api/tickets/process.
type ProcessTicketRequest struct {
	TicketID      string   `json:"ticket_id" validate:"required,min=1,max=64"`
	CustomerName  string   `json:"customer_name" validate:"required,min=1,max=128"`
	CustomerEmail string   `json:"customer_email" validate:"omitempty,email"`
	AccountTier   string   `json:"account_tier" validate:"omitempty,oneof=enterprise professional starter free"`
	Product       string   `json:"product" validate:"omitempty,max=64"`
	Subject       string   `json:"subject" validate:"required,min=1,max=512"`
	Body          string   `json:"body" validate:"required,min=1"`
	Attachments   []string `json:"attachments,omitempty"`
}

// KBSearchRequest is the request body for POST /api/kb/search.
type KBSearchRequest struct {
	Query string `json:"query" validate:"required,min=1"`
	TopK  int    `json:"top_k" validate:"omitempty,min=1,max=20"`
}

// ========== Monitoring Types ==========

// UpdateIssueStatusRequest is the request body for PUT /api/issues/:id/status.
type UpdateIssueStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=investigating mitigated resolved"`
}

// UpdateMonitorSettingsRequest is the request body for PUT /api/settings/monitor.
type UpdateMonitorSettingsRequest struct {
	AutoAnalyze   *bool `json:"auto_analyze"`
	SlackEnabled  *bool `json:"slack_enabled"`
	RetentionDays *int  `json:"retention_days"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// ========== Mapper Output Types ==========

// IssueListItem is a compact representation of an issue for list views.
// It omits the long description and workaround text.
type IssueListItem struct {
	ID               uint                 `json:"id"`
	IssueID          string               `json:"issue_id"`
	Title            string               `json:"title"`
	Severity         string               `json:"severity"`
	Status           database.IssueStatus `json:"status"`
	AffectedServices []string             `json:"affected_services"`
	AffectedRegions  []string             `json:"affected_regions"`
	AlertCount       int                  `json:"alert_count"`
	DetectedAt       time.Time            `json:"detected_at"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
}

// TicketListItem is a compact representation of a processed ticket.
// The reply text and embedding are omitted.
type TicketListItem struct {
	ID          uint      `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Subject     string    `json:"subject"`
	Urgency     string    `json:"urgency"`
	Category    string    `json:"category"`
	Sentiment   string    `json:"sentiment"`
	Team        string    `json:"team"`
	AutoReplied bool      `json:"auto_replied"`
	ProcessedAt time.Time `json:"processed_at"`
}
