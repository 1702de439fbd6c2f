package monitoring

import (
	"errors"
	"testing"
	"time"
)

// scriptedLLM counts calls and returns a fixed analysis result or error
type scriptedLLM struct {
	calls  int
	result map[string]interface{}
	err    error
}

func (s *scriptedLLM) Complete(prompt, systemPrompt string) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) CompleteJSON(prompt, systemPrompt string) (map[string]interface{}, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *scriptedLLM) Embed(texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (s *scriptedLLM) IsMock() bool { return true }

func analysisResult() map[string]interface{} {
	return map[string]interface{}{
		"severity":               "high",
		"root_cause":             "Connection pool exhaustion.",
		"customer_impact":        "Slow responses.",
		"recommended_action":     "Scale out.",
		"issue_description":      "Latency breaches observed on auth-api.",
		"workaround":             "Retry against the secondary region.",
		"eng_alert_subject":      "[ALERT] auth-api latency",
		"eng_alert_body":         "Latency above 500ms for 3 consecutive events.",
		"customer_alert_subject": "Service update",
		"customer_alert_body":    "We are investigating slow responses.",
	}
}

func flaggedEvent(id, service, region string, critical bool, ts time.Time) LogEvent {
	return LogEvent{
		EventID:     id,
		Timestamp:   ts,
		EventType:   EventTypeAPI,
		ServiceName: service,
		Region:      region,
		Severity:    "error",
		Message:     "/api/v1/auth/login - 503",
		Metrics:     map[string]float64{"latency_ms": 640},
		Flagged:     true,
		Critical:    critical,
	}
}

func TestAnalyst_ProducesIssueAndAlerts(t *testing.T) {
	client := &scriptedLLM{result: analysisResult()}
	analyst := NewAnalyst(client)

	now := time.Now()
	event := flaggedEvent("evt-1", "auth-api", "us-east-1", false, now)
	context := []LogEvent{
		flaggedEvent("evt-ctx-1", "auth-api", "eu-west-1", false, now.Add(-time.Minute)),
		flaggedEvent("evt-ctx-2", "auth-api", "us-east-1", false, now.Add(-2*time.Minute)),
	}

	issue, alerts := analyst.AnalyzeFlaggedEvent(event, context)
	if issue == nil {
		t.Fatal("expected an issue")
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", client.calls)
	}

	if issue.Severity != "high" {
		t.Errorf("severity = %q", issue.Severity)
	}
	if issue.Status != "investigating" {
		t.Errorf("status = %q", issue.Status)
	}
	if len(issue.AffectedServices) != 1 || issue.AffectedServices[0] != "auth-api" {
		t.Errorf("affected services = %v", issue.AffectedServices)
	}

	// Regions: union of trigger + context, deduplicated.
	if len(issue.AffectedRegions) != 2 {
		t.Errorf("affected regions = %v, want us-east-1 and eu-west-1", issue.AffectedRegions)
	}

	// Related events: trigger first, then context.
	if len(issue.RelatedEvents) != 3 || issue.RelatedEvents[0] != "evt-1" {
		t.Errorf("related events = %v", issue.RelatedEvents)
	}

	if len(alerts) != 1 {
		t.Fatalf("non-critical event must yield exactly 1 alert, got %d", len(alerts))
	}
	if alerts[0].AlertType != AlertTypeEngineering {
		t.Errorf("alert type = %q", alerts[0].AlertType)
	}
	if alerts[0].RelatedIssueID != issue.IssueID {
		t.Error("alert not linked to issue")
	}
}

func TestAnalyst_CriticalEventYieldsCustomerAlert(t *testing.T) {
	analyst := NewAnalyst(&scriptedLLM{result: analysisResult()})

	event := flaggedEvent("evt-crit", "payment-api", "us-east-1", true, time.Now())
	issue, alerts := analyst.AnalyzeFlaggedEvent(event, nil)
	if issue == nil {
		t.Fatal("expected an issue")
	}
	if len(alerts) != 2 {
		t.Fatalf("critical event must yield exactly 2 alerts, got %d", len(alerts))
	}
	if alerts[0].AlertType != AlertTypeEngineering || alerts[1].AlertType != AlertTypeCustomer {
		t.Errorf("alert types = %q, %q", alerts[0].AlertType, alerts[1].AlertType)
	}
}

func TestAnalyst_DeduplicatesByEventID(t *testing.T) {
	client := &scriptedLLM{result: analysisResult()}
	analyst := NewAnalyst(client)

	event := flaggedEvent("evt-dup", "auth-api", "us-east-1", false, time.Now())

	issue, _ := analyst.AnalyzeFlaggedEvent(event, nil)
	if issue == nil {
		t.Fatal("first analysis should produce an issue")
	}

	issue, alerts := analyst.AnalyzeFlaggedEvent(event, nil)
	if issue != nil || len(alerts) != 0 {
		t.Error("second analysis of the same event must return (nil, none)")
	}
	if client.calls != 1 {
		t.Errorf("dedup must prevent a second LLM call, got %d calls", client.calls)
	}

	analyst.ClearAnalyzed()
	analyst.AnalyzeFlaggedEvent(event, nil)
	if client.calls != 2 {
		t.Error("ClearAnalyzed should allow re-analysis")
	}
}

func TestAnalyst_LLMFailureReturnsNoIssue(t *testing.T) {
	analyst := NewAnalyst(&scriptedLLM{err: errors.New("upstream timeout")})

	event := flaggedEvent("evt-fail", "auth-api", "us-east-1", true, time.Now())
	issue, alerts := analyst.AnalyzeFlaggedEvent(event, nil)
	if issue != nil || len(alerts) != 0 {
		t.Error("LLM failure must surface as no issue produced")
	}
}

func TestAnalyst_ContextSelection(t *testing.T) {
	client := &scriptedLLM{result: analysisResult()}
	analyst := NewAnalyst(client)

	now := time.Now()
	event := flaggedEvent("evt-main", "auth-api", "us-east-1", false, now)

	recent := []LogEvent{
		flaggedEvent("ctx-0", "auth-api", "r0", false, now),
		{EventID: "other-svc", ServiceName: "user-api", Flagged: true, Region: "r9"},
		{EventID: "unflagged", ServiceName: "auth-api", Flagged: false, Region: "r8"},
		flaggedEvent("ctx-1", "auth-api", "r1", false, now),
		flaggedEvent("ctx-2", "auth-api", "r2", false, now),
		flaggedEvent("ctx-3", "auth-api", "r3", false, now),
		flaggedEvent("ctx-4", "auth-api", "r4", false, now),
		flaggedEvent("ctx-5", "auth-api", "r5", false, now),
	}

	issue, _ := analyst.AnalyzeFlaggedEvent(event, recent)
	if issue == nil {
		t.Fatal("expected an issue")
	}

	// Trigger id + at most 5 context ids; other services and unflagged
	// events excluded.
	want := []string{"evt-main", "ctx-0", "ctx-1", "ctx-2", "ctx-3", "ctx-4"}
	if len(issue.RelatedEvents) != len(want) {
		t.Fatalf("related events = %v", issue.RelatedEvents)
	}
	for i, id := range want {
		if issue.RelatedEvents[i] != id {
			t.Errorf("related_events[%d] = %q, want %q", i, issue.RelatedEvents[i], id)
		}
	}
}
