// Package testhelpers provides additional data builders for testing
package testhelpers

import (
	"time"

	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/monitoring"
)

// ========================================
// Log Event Builder
// ========================================

// LogEventBuilder builds LogEvent instances for testing
type LogEventBuilder struct {
	event monitoring.LogEvent
}

// NewLogEventBuilder creates a new log event builder with defaults
func NewLogEventBuilder() *LogEventBuilder {
	return &LogEventBuilder{
		event: monitoring.LogEvent{
			EventID:     "evt-test-0001",
			Timestamp:   time.Now(),
			EventType:   monitoring.EventTypeAPI,
			ServiceName: "auth-api",
			Region:      "us-east-1",
			Severity:    "info",
			Message:     "/api/v1/auth/login - 200",
			Metrics:     map[string]float64{"latency_ms": 120},
		},
	}
}

// WithID sets the event id
func (b *LogEventBuilder) WithID(id string) *LogEventBuilder {
	b.event.EventID = id
	return b
}

// WithType sets the event type
func (b *LogEventBuilder) WithType(t monitoring.EventType) *LogEventBuilder {
	b.event.EventType = t
	return b
}

// WithService sets the service name
func (b *LogEventBuilder) WithService(service string) *LogEventBuilder {
	b.event.ServiceName = service
	return b
}

// WithRegion sets the region
func (b *LogEventBuilder) WithRegion(region string) *LogEventBuilder {
	b.event.Region = region
	return b
}

// WithTimestamp sets the timestamp
func (b *LogEventBuilder) WithTimestamp(ts time.Time) *LogEventBuilder {
	b.event.Timestamp = ts
	return b
}

// WithMetric sets a single metric value
func (b *LogEventBuilder) WithMetric(name string, value float64) *LogEventBuilder {
	if b.event.Metrics == nil {
		b.event.Metrics = map[string]float64{}
	}
	b.event.Metrics[name] = value
	return b
}

// WithMetrics replaces the metrics map
func (b *LogEventBuilder) WithMetrics(metrics map[string]float64) *LogEventBuilder {
	b.event.Metrics = metrics
	return b
}

// Flagged marks the event as flagged
func (b *LogEventBuilder) Flagged() *LogEventBuilder {
	b.event.Flagged = true
	return b
}

// Critical marks the event as flagged and critical
func (b *LogEventBuilder) Critical() *LogEventBuilder {
	b.event.Flagged = true
	b.event.Critical = true
	return b
}

// Build returns the constructed event
func (b *LogEventBuilder) Build() monitoring.LogEvent {
	return b.event
}

// ========================================
// Issue Builder
// ========================================

// IssueBuilder builds database.Issue instances for testing
type IssueBuilder struct {
	issue database.Issue
}

// NewIssueBuilder creates a new issue builder with defaults
func NewIssueBuilder() *IssueBuilder {
	return &IssueBuilder{
		issue: database.Issue{
			IssueID:          "ISS-1717243200-auth-api",
			Title:            "High Severity Issue: auth-api",
			Severity:         "high",
			Status:           database.IssueStatusInvestigating,
			AffectedServices: database.StringList{"auth-api"},
			AffectedRegions:  database.StringList{"us-east-1"},
			RootCause:        "Connection pool exhaustion",
			DetectedAt:       time.Now(),
		},
	}
}

// WithIssueID sets the external issue id
func (b *IssueBuilder) WithIssueID(id string) *IssueBuilder {
	b.issue.IssueID = id
	return b
}

// WithSeverity sets the severity
func (b *IssueBuilder) WithSeverity(severity string) *IssueBuilder {
	b.issue.Severity = severity
	return b
}

// WithStatus sets the lifecycle status
func (b *IssueBuilder) WithStatus(status database.IssueStatus) *IssueBuilder {
	b.issue.Status = status
	return b
}

// WithServices sets the affected services
func (b *IssueBuilder) WithServices(services ...string) *IssueBuilder {
	b.issue.AffectedServices = services
	return b
}

// WithRelatedEvents sets the related event ids
func (b *IssueBuilder) WithRelatedEvents(ids ...string) *IssueBuilder {
	b.issue.RelatedEvents = ids
	return b
}

// Build returns the constructed issue
func (b *IssueBuilder) Build() database.Issue {
	return b.issue
}

// ========================================
// Ticket Record Builder
// ========================================

// TicketRecordBuilder builds TicketRecord instances for testing
type TicketRecordBuilder struct {
	record database.TicketRecord
}

// NewTicketRecordBuilder creates a new ticket record builder with defaults
func NewTicketRecordBuilder() *TicketRecordBuilder {
	return &TicketRecordBuilder{
		record: database.TicketRecord{
			TicketID:    "TIC-1001",
			CustomerID:  "cust_00042",
			Subject:     "Cannot log in",
			Body:        "I keep getting an error when logging in.",
			Channel:     "email",
			Urgency:     "P2",
			Category:    "account_access",
			Sentiment:   "frustrated",
			Queue:       "support-general",
			Team:        "Support Tier 2",
			ProcessedAt: time.Now(),
		},
	}
}

// WithTicketID sets the ticket id
func (b *TicketRecordBuilder) WithTicketID(id string) *TicketRecordBuilder {
	b.record.TicketID = id
	return b
}

// WithCustomer sets the customer id
func (b *TicketRecordBuilder) WithCustomer(id string) *TicketRecordBuilder {
	b.record.CustomerID = id
	return b
}

// WithSubjectBody sets subject and body
func (b *TicketRecordBuilder) WithSubjectBody(subject, body string) *TicketRecordBuilder {
	b.record.Subject = subject
	b.record.Body = body
	return b
}

// WithUrgency sets the urgency
func (b *TicketRecordBuilder) WithUrgency(urgency string) *TicketRecordBuilder {
	b.record.Urgency = urgency
	return b
}

// WithCategory sets the category
func (b *TicketRecordBuilder) WithCategory(category string) *TicketRecordBuilder {
	b.record.Category = category
	return b
}

// WithEmbedding sets the stored embedding
func (b *TicketRecordBuilder) WithEmbedding(v []float32) *TicketRecordBuilder {
	b.record.Embedding = v
	return b
}

// WithProcessedAt sets the processing timestamp
func (b *TicketRecordBuilder) WithProcessedAt(ts time.Time) *TicketRecordBuilder {
	b.record.ProcessedAt = ts
	return b
}

// AutoReplied marks the record as auto-replied
func (b *TicketRecordBuilder) AutoReplied() *TicketRecordBuilder {
	b.record.AutoReplied = true
	return b
}

// Build returns the constructed record
func (b *TicketRecordBuilder) Build() database.TicketRecord {
	return b.record
}
