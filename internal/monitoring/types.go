package monitoring

import "time"

// EventType categorizes log events by the layer that produced them
type EventType string

const (
	EventTypeAPI            EventType = "api"
	EventTypeDatabase       EventType = "database"
	EventTypeFrontend       EventType = "frontend"
	EventTypeInfrastructure EventType = "infrastructure"
)

// EventTypes lists all event types in a fixed order
func EventTypes() []EventType {
	return []EventType{EventTypeAPI, EventTypeDatabase, EventTypeFrontend, EventTypeInfrastructure}
}

// LogEvent is a single telemetry event emitted by the generator.
// Flagged and Critical are set by the threshold checker (or pre-set on
// scripted demo events) and are never unset once set.
type LogEvent struct {
	EventID     string             `json:"event_id"`
	Timestamp   time.Time          `json:"timestamp"`
	EventType   EventType          `json:"event_type"`
	ServiceName string             `json:"service_name"`
	Region      string             `json:"region"`
	CustomerID  string             `json:"customer_id,omitempty"`
	Severity    string             `json:"severity"`
	Message     string             `json:"message"`
	Metrics     map[string]float64 `json:"metrics"`
	Flagged     bool               `json:"flagged"`
	Critical    bool               `json:"critical"`
}

// ThresholdResult is the outcome of checking one event against the
// threshold table. At most one exceeded metric is recorded per event.
type ThresholdResult struct {
	Flagged           bool     `json:"flagged"`
	Critical          bool     `json:"critical"`
	ThresholdExceeded string   `json:"threshold_exceeded,omitempty"`
	ActualValue       float64  `json:"actual_value,omitempty"`
	ThresholdValue    float64  `json:"threshold_value,omitempty"`
	BaselineValue     *float64 `json:"baseline_value,omitempty"`
}

// Issue is an AI-generated incident record created from a flagged event
type Issue struct {
	IssueID           string    `json:"issue_id"`
	CreatedAt         time.Time `json:"created_at"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	Severity          string    `json:"severity"`
	AffectedServices  []string  `json:"affected_services"`
	AffectedRegions   []string  `json:"affected_regions"`
	Description       string    `json:"description"`
	RootCause         string    `json:"root_cause,omitempty"`
	CustomerImpact    string    `json:"customer_impact,omitempty"`
	RecommendedAction string    `json:"recommended_action,omitempty"`
	Workaround        string    `json:"workaround,omitempty"`
	AIGenerated       bool      `json:"ai_generated"`
	RelatedEvents     []string  `json:"related_events"`
}

// Alert types produced by the analyst
const (
	AlertTypeEngineering = "engineering"
	AlertTypeCustomer    = "customer"
)

// Alert is an AI-generated notification attached to an issue.
// Every issue gets an engineering alert; critical events additionally
// produce a customer alert.
type Alert struct {
	AlertID         string    `json:"alert_id"`
	CreatedAt       time.Time `json:"created_at"`
	AlertType       string    `json:"alert_type"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	AffectedService string    `json:"affected_service"`
	RelatedIssueID  string    `json:"related_issue_id,omitempty"`
	RelatedTicketID string    `json:"related_ticket_id,omitempty"`
}
