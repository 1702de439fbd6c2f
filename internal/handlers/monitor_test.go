package handlers

import (
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/deskwatch/deskwatch/internal/api"
	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/llm"
	"github.com/deskwatch/deskwatch/internal/monitoring"
	"github.com/deskwatch/deskwatch/internal/testhelpers"
)

func newMonitorTestMux(t *testing.T) (*http.ServeMux, *monitoring.Generator, *gorm.DB) {
	t.Helper()
	db := testhelpers.SetupTestDB(t)

	// Long interval so no events are emitted while tests run
	generator := monitoring.NewGenerator(monitoring.GeneratorConfig{
		EventInterval: time.Hour,
		Seed:          1,
	})
	t.Cleanup(generator.Stop)

	analyst := monitoring.NewAnalyst(llm.NewMockClient())

	mux := http.NewServeMux()
	NewMonitorHandler(generator, analyst, db).SetupRoutes(mux)
	return mux, generator, db
}

func seedIssue(t *testing.T, db *gorm.DB, issueID, severity string, status database.IssueStatus) {
	t.Helper()
	issue := &database.Issue{
		IssueID:          issueID,
		Title:            "Elevated error rate on payment-api",
		Severity:         severity,
		Status:           status,
		AffectedServices: database.StringList{"payment-api"},
		DetectedAt:       time.Now(),
	}
	alerts := []database.Alert{{
		AlertID:        "ALR-" + issueID,
		AlertType:      "engineering",
		Subject:        "Investigate " + issueID,
		Body:           "Error rate crossed threshold",
		RelatedIssueID: issueID,
	}}
	if err := database.SaveIssue(db, issue, alerts); err != nil {
		t.Fatalf("SaveIssue: %v", err)
	}
}

func TestMonitorStatus(t *testing.T) {
	mux, _, _ := newMonitorTestMux(t)

	var resp struct {
		Running       bool `json:"running"`
		EventsEmitted int  `json:"events_emitted"`
		EventsFlagged int  `json:"events_flagged"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/monitor/status", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if resp.Running {
		t.Error("generator should not be running")
	}
	if resp.EventsEmitted != 0 {
		t.Errorf("events_emitted = %d; want 0", resp.EventsEmitted)
	}
}

func TestMonitorStartConflict(t *testing.T) {
	mux, generator, _ := newMonitorTestMux(t)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/monitor/start", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		AssertBodyContains("started")

	if !generator.IsRunning() {
		t.Fatal("generator should be running after start")
	}

	// Both start and demo refuse while a run is in progress
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/monitor/start", nil).
		Execute(mux).
		AssertStatus(http.StatusConflict).
		AssertBodyContains("already_running")
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/monitor/demo", nil).
		Execute(mux).
		AssertStatus(http.StatusConflict)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/monitor/stop", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		AssertBodyContains("stopped")

	if generator.IsRunning() {
		t.Error("generator should be stopped")
	}
}

func TestMonitorDemoStart(t *testing.T) {
	mux, generator, _ := newMonitorTestMux(t)

	var resp struct {
		Status     string `json:"status"`
		EventCount int    `json:"event_count"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/monitor/demo", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if resp.Status != "demo_started" {
		t.Errorf("status = %s; want demo_started", resp.Status)
	}
	if resp.EventCount != monitoring.DemoEventCount {
		t.Errorf("event_count = %d; want %d", resp.EventCount, monitoring.DemoEventCount)
	}
	generator.Stop()
}

func TestMonitorEventsEmpty(t *testing.T) {
	mux, _, _ := newMonitorTestMux(t)

	var resp struct {
		Events []monitoring.LogEvent `json:"events"`
		Count  int                   `json:"count"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/monitor/events?limit=10", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if resp.Count != 0 || len(resp.Events) != 0 {
		t.Errorf("expected empty event buffer, got count=%d", resp.Count)
	}
}

func TestListIssuesFilterAndPagination(t *testing.T) {
	mux, _, db := newMonitorTestMux(t)
	seedIssue(t, db, "ISS-1001-payment-api", "critical", database.IssueStatusInvestigating)
	seedIssue(t, db, "ISS-1002-auth-api", "high", database.IssueStatusInvestigating)
	seedIssue(t, db, "ISS-1003-search-api", "medium", database.IssueStatusResolved)

	var resp api.PaginatedResponse
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)
	if resp.Pagination.Total != 3 {
		t.Errorf("total = %d; want 3", resp.Pagination.Total)
	}

	var filtered api.PaginatedResponse
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues?status=resolved", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&filtered)
	if filtered.Pagination.Total != 1 {
		t.Errorf("resolved total = %d; want 1", filtered.Pagination.Total)
	}

	var paged api.PaginatedResponse
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues?per_page=2&page=2", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&paged)
	if paged.Pagination.TotalPages != 2 {
		t.Errorf("total_pages = %d; want 2", paged.Pagination.TotalPages)
	}
	if items, ok := paged.Data.([]interface{}); !ok || len(items) != 1 {
		t.Errorf("page 2 should hold the single remaining issue, got %v", paged.Data)
	}

	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues?status=bogus", nil).
		Execute(mux).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("Invalid status filter")
}

func TestGetIssue(t *testing.T) {
	mux, _, db := newMonitorTestMux(t)
	seedIssue(t, db, "ISS-2001-payment-api", "critical", database.IssueStatusInvestigating)

	var issue database.Issue
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues/ISS-2001-payment-api", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&issue)
	if issue.IssueID != "ISS-2001-payment-api" {
		t.Errorf("issue_id = %s", issue.IssueID)
	}
	if len(issue.Alerts) != 1 {
		t.Errorf("alerts = %d; want 1", len(issue.Alerts))
	}

	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/issues/ISS-nope", nil).
		Execute(mux).
		AssertStatus(http.StatusNotFound)
}

func TestUpdateIssueStatus(t *testing.T) {
	mux, _, db := newMonitorTestMux(t)
	seedIssue(t, db, "ISS-3001-payment-api", "high", database.IssueStatusInvestigating)

	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/issues/ISS-3001-payment-api/status", nil).
		WithJSONBody(map[string]string{"status": "resolved"}).
		Execute(mux).
		AssertStatus(http.StatusOK)

	issue, err := database.GetIssue(db, "ISS-3001-payment-api")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue.Status != database.IssueStatusResolved {
		t.Errorf("status = %s; want resolved", issue.Status)
	}
	if issue.ResolvedAt == nil {
		t.Error("ResolvedAt should be set on resolve")
	}

	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/issues/ISS-3001-payment-api/status", nil).
		WithJSONBody(map[string]string{"status": "closed"}).
		Execute(mux).
		AssertStatus(http.StatusUnprocessableEntity).
		AssertBodyContains("validation_error")

	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/issues/ISS-missing/status", nil).
		WithJSONBody(map[string]string{"status": "mitigated"}).
		Execute(mux).
		AssertStatus(http.StatusNotFound)
}

func TestListAlertsTypeFilter(t *testing.T) {
	mux, _, db := newMonitorTestMux(t)
	seedIssue(t, db, "ISS-4001-payment-api", "critical", database.IssueStatusInvestigating)

	var resp struct {
		Alerts []database.Alert `json:"alerts"`
		Count  int              `json:"count"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?type=engineering", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)
	if resp.Count != 1 {
		t.Errorf("engineering alerts = %d; want 1", resp.Count)
	}

	var empty struct {
		Count int `json:"count"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?type=customer", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&empty)
	if empty.Count != 0 {
		t.Errorf("customer alerts = %d; want 0", empty.Count)
	}
}

func TestMonitorSettingsRoundTrip(t *testing.T) {
	mux, _, _ := newMonitorTestMux(t)

	var settings database.MonitorSettings
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/settings/monitor", nil).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&settings)
	if !settings.AutoAnalyze || settings.RetentionDays != 30 {
		t.Errorf("unexpected defaults: %+v", settings)
	}

	// Partial update only touches the provided field
	var updated database.MonitorSettings
	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/settings/monitor", nil).
		WithJSONBody(map[string]interface{}{"auto_analyze": false}).
		Execute(mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&updated)
	if updated.AutoAnalyze {
		t.Error("auto_analyze should be false after update")
	}
	if updated.RetentionDays != 30 {
		t.Errorf("retention_days changed unexpectedly: %d", updated.RetentionDays)
	}

	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/settings/monitor", nil).
		WithJSONBody(map[string]interface{}{"retention_days": 0}).
		Execute(mux).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("retention_days")
}
