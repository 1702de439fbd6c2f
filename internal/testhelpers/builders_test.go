package testhelpers

import (
	"testing"
	"time"

	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/monitoring"
)

func TestLogEventBuilder(t *testing.T) {
	event := NewLogEventBuilder().
		WithID("evt-42").
		WithType(monitoring.EventTypeDatabase).
		WithService("orders-db").
		WithRegion("eu-west-1").
		WithMetric("query_time_ms", 450).
		Flagged().
		Build()

	if event.EventID != "evt-42" {
		t.Errorf("event id = %q", event.EventID)
	}
	if event.EventType != monitoring.EventTypeDatabase {
		t.Errorf("event type = %q", event.EventType)
	}
	if event.Metrics["query_time_ms"] != 450 {
		t.Errorf("metrics = %v", event.Metrics)
	}
	if !event.Flagged || event.Critical {
		t.Error("expected flagged but not critical")
	}
}

func TestLogEventBuilder_Critical(t *testing.T) {
	event := NewLogEventBuilder().Critical().Build()
	if !event.Flagged || !event.Critical {
		t.Error("Critical must imply Flagged")
	}
}

func TestLogEventBuilder_Defaults(t *testing.T) {
	event := NewLogEventBuilder().Build()
	if event.ServiceName == "" || event.Region == "" || event.EventType == "" {
		t.Errorf("default event incomplete: %+v", event)
	}
	if event.Flagged {
		t.Error("default event must not be flagged")
	}
}

func TestIssueBuilder(t *testing.T) {
	issue := NewIssueBuilder().
		WithIssueID("ISS-1-payment-api").
		WithSeverity("critical").
		WithStatus(database.IssueStatusResolved).
		WithServices("payment-api", "billing-api").
		WithRelatedEvents("evt-1", "evt-2").
		Build()

	if issue.IssueID != "ISS-1-payment-api" {
		t.Errorf("issue id = %q", issue.IssueID)
	}
	if issue.Status != database.IssueStatusResolved {
		t.Errorf("status = %q", issue.Status)
	}
	if len(issue.AffectedServices) != 2 || len(issue.RelatedEvents) != 2 {
		t.Errorf("lists not set: %+v", issue)
	}
}

func TestTicketRecordBuilder(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := NewTicketRecordBuilder().
		WithTicketID("TIC-9").
		WithCustomer("cust_00007").
		WithSubjectBody("Billing question", "Why was I charged twice?").
		WithUrgency("P1").
		WithCategory("billing").
		WithEmbedding([]float32{0.1, 0.2}).
		WithProcessedAt(ts).
		AutoReplied().
		Build()

	if record.TicketID != "TIC-9" || record.CustomerID != "cust_00007" {
		t.Errorf("ids not set: %+v", record)
	}
	if record.Urgency != "P1" || record.Category != "billing" {
		t.Errorf("classification not set: %+v", record)
	}
	if !record.AutoReplied {
		t.Error("expected auto-replied")
	}
	if len(record.Embedding) != 2 {
		t.Errorf("embedding = %v", record.Embedding)
	}
	if !record.ProcessedAt.Equal(ts) {
		t.Errorf("processed at = %v", record.ProcessedAt)
	}
}
