package llm

import (
	"hash/fnv"
	"math"
	"strings"
)

// mockEmbeddingDim keeps mock vectors small but non-trivial
const mockEmbeddingDim = 64

// MockClient produces deterministic canned output. It is used when no
// API key is configured and throughout the tests, so the whole system
// runs offline with stable results.
type MockClient struct{}

// NewMockClient creates a mock client
func NewMockClient() *MockClient {
	return &MockClient{}
}

// IsMock always returns true
func (m *MockClient) IsMock() bool {
	return true
}

// Complete returns a canned reply appropriate to the prompt
func (m *MockClient) Complete(prompt, systemPrompt string) (string, error) {
	lower := strings.ToLower(prompt + " " + systemPrompt)

	if strings.Contains(lower, "reply") || strings.Contains(lower, "customer") {
		return "Thank you for reaching out. We have reviewed your request and " +
			"our team is looking into it. We will follow up with an update shortly.\n\n" +
			"Best regards,\nSupport Team", nil
	}

	return "Acknowledged.", nil
}

// CompleteJSON returns canned structured output keyed on prompt content
func (m *MockClient) CompleteJSON(prompt, systemPrompt string) (map[string]interface{}, error) {
	lower := strings.ToLower(prompt + " " + systemPrompt)

	switch {
	case strings.Contains(lower, "monitoring event"):
		severity := "high"
		if strings.Contains(lower, "critical: true") {
			severity = "critical"
		}
		return map[string]interface{}{
			"severity":               severity,
			"root_cause":             "Sustained latency regression consistent with resource saturation.",
			"customer_impact":        "Requests to the affected service are slow or failing.",
			"recommended_action":     "Scale out the affected service and inspect recent deploys.",
			"issue_description":      "Automated analysis detected repeated threshold breaches on the affected service. Metrics indicate degradation beyond the healthy baseline.",
			"workaround":             "Retry failed requests against the secondary region.",
			"eng_alert_subject":      "[ALERT] Threshold breach detected",
			"eng_alert_body":         "Repeated threshold breaches detected. See the attached metrics and recent deploy history.",
			"customer_alert_subject": "Service disruption update",
			"customer_alert_body":    "We are investigating degraded performance affecting some requests. Updates to follow.",
		}, nil

	case strings.Contains(lower, "draft a reply"):
		return map[string]interface{}{
			"customer_reply": "Thank you for reaching out. We have reviewed your request and " +
				"our team is looking into it. We will follow up with an update shortly.\n\n" +
				"Best regards,\nSupport Team",
			"internal_notes": "Classification and routing generated offline. Verify details before sending.",
			"citations":      []interface{}{},
		}, nil

	case strings.Contains(lower, "triage"):
		// Match against the ticket fields only; the surrounding prompt
		// template mentions outages and breaches in its guidelines.
		ticket := ticketSection(lower)
		urgency := "P2"
		category := "other"
		sentiment := "neutral"
		if strings.Contains(ticket, "invoice") || strings.Contains(ticket, "charge") || strings.Contains(ticket, "billing") || strings.Contains(ticket, "refund") {
			category = "billing"
		}
		if strings.Contains(ticket, "error") || strings.Contains(ticket, "crash") || strings.Contains(ticket, "bug") {
			category = "bug"
		}
		if strings.Contains(ticket, "outage") || strings.Contains(ticket, "down") || strings.Contains(ticket, "unavailable") {
			category = "outage"
			urgency = "P1"
		}
		if strings.Contains(ticket, "production down") || strings.Contains(ticket, "data loss") || strings.Contains(ticket, "breach") {
			urgency = "P0"
		}
		if strings.Contains(ticket, "unacceptable") || strings.Contains(ticket, "frustrated") || strings.Contains(ticket, "angry") {
			sentiment = "negative"
		}
		return map[string]interface{}{
			"triage": map[string]interface{}{
				"urgency":    urgency,
				"category":   category,
				"sentiment":  sentiment,
				"confidence": 0.85,
				"rationale":  "Classified from subject and body keywords.",
			},
			"extracted_fields": map[string]interface{}{
				"environment":    "production",
				"missing_fields": []interface{}{},
			},
		}, nil

	case strings.Contains(lower, "guardrail") || strings.Contains(lower, "review this draft"):
		return map[string]interface{}{
			"passed":        true,
			"issues_found":  []interface{}{},
			"fixes_applied": []interface{}{},
		}, nil
	}

	return map[string]interface{}{}, nil
}

// ticketSection narrows a triage prompt to its "TICKET:" block so the
// template's own instruction text cannot trip the keyword checks. A
// prompt without the marker is used whole.
func ticketSection(lower string) string {
	start := strings.Index(lower, "ticket:")
	if start == -1 {
		return lower
	}
	section := lower[start:]
	if end := strings.Index(section, "respond with json"); end != -1 {
		section = section[:end]
	}
	return section
}

// Embed returns a deterministic pseudo-embedding per text: token hashes
// scattered into a fixed-size vector, L2-normalized. Similar texts share
// tokens and therefore score higher on cosine similarity.
func (m *MockClient) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, mockEmbeddingDim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%mockEmbeddingDim]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		out[i] = vec
	}
	return out, nil
}
