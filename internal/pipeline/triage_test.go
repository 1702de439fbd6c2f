package pipeline

import (
	"testing"

	"github.com/deskwatch/deskwatch/internal/llm"
)

func TestTriageAndExtract_Mock(t *testing.T) {
	ticket := SupportTicket{
		TicketID:     "TICK-1001",
		CustomerName: "Dana Reyes",
		AccountTier:  TierProfessional,
		Product:      "api",
		Subject:      "Billing question about last invoice",
		Body:         "I was charged twice on my latest invoice and need a refund.",
	}

	triage, extracted, err := TriageAndExtract(llm.NewMockClient(), ticket)
	if err != nil {
		t.Fatalf("TriageAndExtract: %v", err)
	}
	if triage.Category != CategoryBilling {
		t.Errorf("Category = %s; want billing", triage.Category)
	}
	if triage.Confidence <= 0 || triage.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", triage.Confidence)
	}
	if extracted.Environment == "" {
		t.Error("expected environment extracted")
	}
}

func TestParseTriageResponse_NormalizesInvalidValues(t *testing.T) {
	response := map[string]interface{}{
		"triage": map[string]interface{}{
			"urgency":   "P9",
			"category":  "mystery",
			"sentiment": "confused",
		},
	}

	triage, extracted := parseTriageResponse(response)
	if triage.Urgency != UrgencyP3 {
		t.Errorf("Urgency = %s; want P3", triage.Urgency)
	}
	if triage.Category != CategoryOther {
		t.Errorf("Category = %s; want other", triage.Category)
	}
	if triage.Sentiment != SentimentNeutral {
		t.Errorf("Sentiment = %s; want neutral", triage.Sentiment)
	}
	if triage.Confidence != 0.7 {
		t.Errorf("Confidence = %f; want fallback 0.7", triage.Confidence)
	}
	if triage.Rationale == "" {
		t.Error("expected fallback rationale")
	}
	if len(extracted.MissingFields) != 0 {
		t.Errorf("MissingFields = %v; want empty", extracted.MissingFields)
	}
}

func TestParseTriageResponse_LowercasesAndUppercases(t *testing.T) {
	response := map[string]interface{}{
		"triage": map[string]interface{}{
			"urgency":    "p1",
			"category":   "OUTAGE",
			"sentiment":  "Negative",
			"confidence": 0.92,
			"rationale":  "Production endpoints failing",
		},
		"extracted_fields": map[string]interface{}{
			"environment":    "production",
			"region":         "null",
			"error_message":  "502 Bad Gateway",
			"missing_fields": []interface{}{"region"},
		},
	}

	triage, extracted := parseTriageResponse(response)
	if triage.Urgency != UrgencyP1 {
		t.Errorf("Urgency = %s; want P1", triage.Urgency)
	}
	if triage.Category != CategoryOutage {
		t.Errorf("Category = %s; want outage", triage.Category)
	}
	if triage.Sentiment != SentimentNegative {
		t.Errorf("Sentiment = %s; want negative", triage.Sentiment)
	}
	if extracted.Region != "" {
		t.Errorf(`Region = %q; literal "null" should be treated as absent`, extracted.Region)
	}
	if extracted.ErrorMessage != "502 Bad Gateway" {
		t.Errorf("ErrorMessage = %q", extracted.ErrorMessage)
	}
	if len(extracted.MissingFields) != 1 || extracted.MissingFields[0] != "region" {
		t.Errorf("MissingFields = %v", extracted.MissingFields)
	}
}
