package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deskwatch/deskwatch/internal/llm"
	"github.com/deskwatch/deskwatch/internal/metrics"
)

// maxContextEvents caps how many same-service flagged events are sent
// to the LLM alongside the triggering event
const maxContextEvents = 5

// dedupCapacity bounds the analyzed-event set. Far larger than the
// event buffer, so an event id cannot age out while still analyzable.
const dedupCapacity = 4096

// Analyst turns a flagged event plus same-service context into an issue
// record and one or two alerts, using exactly one LLM call per distinct
// event. Invocations must be serialized by the caller.
type Analyst struct {
	client   llm.Client
	analyzed *lru.Cache[string, struct{}]
	clock    func() time.Time
}

// NewAnalyst creates an analyst backed by the given LLM client
func NewAnalyst(client llm.Client) *Analyst {
	return NewAnalystWithClock(client, time.Now)
}

// NewAnalystWithClock creates an analyst with an injected clock
func NewAnalystWithClock(client llm.Client, clock func() time.Time) *Analyst {
	analyzed, _ := lru.New[string, struct{}](dedupCapacity)
	return &Analyst{
		client:   client,
		analyzed: analyzed,
		clock:    clock,
	}
}

// AnalyzeFlaggedEvent analyzes one flagged event. An event id that was
// already analyzed returns (nil, nil) with no LLM call, as does any
// LLM failure; a nil issue means "no incident produced", never a crash
// signal.
func (a *Analyst) AnalyzeFlaggedEvent(event LogEvent, recentEvents []LogEvent) (*Issue, []Alert) {
	if _, seen := a.analyzed.Get(event.EventID); seen {
		metrics.ObserveAnalysis(metrics.OutcomeDuplicate)
		return nil, nil
	}
	a.analyzed.Add(event.EventID, struct{}{})

	contextEvents := selectContext(event, recentEvents)

	result, err := a.analyzeAndGenerateAll(event, contextEvents)
	if err != nil {
		log.Printf("Analysis of event %s failed: %v", shortID(event.EventID), err)
		metrics.ObserveAnalysis(metrics.OutcomeError)
		return nil, nil
	}

	issue := a.buildIssue(event, result, contextEvents)
	alerts := a.buildAlerts(event, issue, result)

	metrics.ObserveAnalysis(metrics.OutcomeSuccess)
	log.Printf("Analysis of event %s produced issue %s with %d alerts",
		shortID(event.EventID), issue.IssueID, len(alerts))
	return issue, alerts
}

// ClearAnalyzed forgets all analyzed event ids
func (a *Analyst) ClearAnalyzed() {
	a.analyzed.Purge()
}

// selectContext keeps same-service flagged events, most recent first,
// capped at maxContextEvents
func selectContext(event LogEvent, recent []LogEvent) []LogEvent {
	out := make([]LogEvent, 0, maxContextEvents)
	for _, e := range recent {
		if e.ServiceName == event.ServiceName && e.Flagged && e.EventID != event.EventID {
			out = append(out, e)
			if len(out) == maxContextEvents {
				break
			}
		}
	}
	return out
}

const analysisSystemPrompt = "You are an SRE analyzing monitoring data. Respond with valid JSON only. Be concise."

// analyzeAndGenerateAll makes the single consolidated LLM call
func (a *Analyst) analyzeAndGenerateAll(event LogEvent, contextEvents []LogEvent) (map[string]interface{}, error) {
	var contextLines []string
	for _, e := range contextEvents {
		m, _ := json.Marshal(e.Metrics)
		contextLines = append(contextLines, fmt.Sprintf("- %s: %s (metrics: %s)", e.ServiceName, e.Message, m))
	}
	contextStr := "None"
	if len(contextLines) > 0 {
		contextStr = strings.Join(contextLines, "\n")
	}

	eventMetrics, _ := json.Marshal(event.Metrics)

	prompt := fmt.Sprintf(`Analyze this monitoring event and generate all required outputs in a single response.

EVENT:
- Type: %s
- Service: %s
- Region: %s
- Message: %s
- Metrics: %s
- Critical: %t

RECENT EVENTS (same service):
%s

Generate a JSON response with ALL of the following:
{
    "severity": "critical|high|medium|low",
    "root_cause": "Brief root cause hypothesis (1 sentence)",
    "customer_impact": "Impact on customers (1 sentence)",
    "recommended_action": "What to do (1 sentence)",
    "issue_description": "Technical description for the knowledge base (2-3 sentences)",
    "workaround": "Workaround if any, or null",
    "eng_alert_subject": "Engineering alert subject line",
    "eng_alert_body": "Engineering alert body (2-3 sentences with metrics)",
    "customer_alert_subject": "Customer notification subject",
    "customer_alert_body": "Customer-friendly notification (2-3 sentences, no technical jargon)"
}`,
		event.EventType, event.ServiceName, event.Region, event.Message, eventMetrics, event.Critical, contextStr)

	result, err := a.client.CompleteJSON(prompt, analysisSystemPrompt)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty analysis result")
	}
	return result, nil
}

func (a *Analyst) buildIssue(event LogEvent, result map[string]interface{}, contextEvents []LogEvent) *Issue {
	now := a.clock()
	severity := stringField(result, "severity", "medium")

	regionSet := map[string]bool{}
	affectedRegions := []string{}
	for _, r := range append([]string{event.Region}, regionsOf(contextEvents)...) {
		if r != "" && !regionSet[r] {
			regionSet[r] = true
			affectedRegions = append(affectedRegions, r)
		}
	}

	relatedEvents := []string{event.EventID}
	for i, e := range contextEvents {
		if i == maxContextEvents {
			break
		}
		relatedEvents = append(relatedEvents, e.EventID)
	}

	return &Issue{
		IssueID:   fmt.Sprintf("ISS-%d-%s", now.Unix(), event.ServiceName),
		CreatedAt: now,
		Title: fmt.Sprintf("%s %s issue in %s (%s)",
			titleCase(severity), event.EventType, event.ServiceName, event.Region),
		Status:            "investigating",
		Severity:          severity,
		AffectedServices:  []string{event.ServiceName},
		AffectedRegions:   affectedRegions,
		Description:       stringField(result, "issue_description", stringField(result, "root_cause", "Issue detected")),
		RootCause:         stringField(result, "root_cause", ""),
		CustomerImpact:    stringField(result, "customer_impact", ""),
		RecommendedAction: stringField(result, "recommended_action", ""),
		Workaround:        stringField(result, "workaround", ""),
		AIGenerated:       true,
		RelatedEvents:     relatedEvents,
	}
}

// buildAlerts always creates the engineering alert; a customer alert is
// added only when the triggering event is critical
func (a *Analyst) buildAlerts(event LogEvent, issue *Issue, result map[string]interface{}) []Alert {
	now := a.clock()
	ts := now.Unix()

	alerts := []Alert{{
		AlertID:         fmt.Sprintf("ALR-%d-eng", ts),
		CreatedAt:       now,
		AlertType:       AlertTypeEngineering,
		Subject:         stringField(result, "eng_alert_subject", fmt.Sprintf("[ALERT] %s", issue.Title)),
		Body:            stringField(result, "eng_alert_body", fmt.Sprintf("Issue detected in %s", event.ServiceName)),
		AffectedService: event.ServiceName,
		RelatedIssueID:  issue.IssueID,
	}}

	if event.Critical {
		alerts = append(alerts, Alert{
			AlertID:         fmt.Sprintf("ALR-%d-cust", ts),
			CreatedAt:       now,
			AlertType:       AlertTypeCustomer,
			Subject:         stringField(result, "customer_alert_subject", fmt.Sprintf("Service Update: %s", event.ServiceName)),
			Body:            stringField(result, "customer_alert_body", "We are investigating an issue and will provide updates."),
			AffectedService: event.ServiceName,
			RelatedIssueID:  issue.IssueID,
		})
	}

	return alerts
}

func regionsOf(events []LogEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Region)
	}
	return out
}

// stringField reads a string from an LLM result map with a fallback.
// JSON null (for "workaround") maps to the fallback.
func stringField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
