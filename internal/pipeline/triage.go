package pipeline

import (
	"fmt"
	"strings"

	"github.com/deskwatch/deskwatch/internal/llm"
)

const triageSystemPrompt = `You are an expert support ticket triage system. Your job is to:
1. Classify the urgency, category, and sentiment of support tickets
2. Extract structured fields from the ticket text
3. Identify missing information that should be requested

You must respond with valid JSON only. Be conservative - only extract information that is explicitly stated.
Never fabricate details. If information is not present, leave the field null.`

const triagePromptTemplate = `Analyze this support ticket and provide classification and extraction.

TICKET:
- ID: %s
- Customer: %s
- Account Tier: %s
- Product: %s
- Subject: %s
- Body: %s

Respond with JSON in this exact format:
{
    "triage": {
        "urgency": "P0|P1|P2|P3",
        "category": "billing|bug|outage|feature_request|security|onboarding|other",
        "sentiment": "negative|neutral|positive",
        "confidence": 0.0-1.0,
        "rationale": "Brief explanation grounded in ticket text"
    },
    "extracted_fields": {
        "environment": "production|staging|development|null",
        "region": "region string or null",
        "error_message": "error text or null",
        "reproduction_steps": "steps or null",
        "impact": "impact description or null",
        "requested_action": "what customer wants or null",
        "order_id": "order/invoice ID or null",
        "missing_fields": ["list", "of", "missing", "critical", "fields"]
    }
}

Classification guidelines:
- P0: Production down, security breach, data loss - requires immediate action
- P1: Major feature broken, significant impact - requires same-day response
- P2: Important issue with workaround - requires response within 24h
- P3: Minor issue, question, or feature request - standard response time

For missing_fields, only include fields that are:
1. Critical for resolving the issue
2. Not already provided in the ticket
3. Reasonable to ask the customer for`

var validCategories = map[Category]bool{
	CategoryBilling: true, CategoryBug: true, CategoryOutage: true,
	CategoryFeatureRequest: true, CategorySecurity: true,
	CategoryOnboarding: true, CategoryOther: true,
}

var validSentiments = map[Sentiment]bool{
	SentimentNegative: true, SentimentNeutral: true, SentimentPositive: true,
}

// TriageAndExtract classifies the ticket and extracts structured
// fields in a single LLM call
func TriageAndExtract(client llm.Client, ticket SupportTicket) (TriageResult, ExtractedFields, error) {
	prompt := fmt.Sprintf(triagePromptTemplate,
		ticket.TicketID, ticket.CustomerName, ticket.AccountTier,
		ticket.Product, ticket.Subject, ticket.Body)

	response, err := client.CompleteJSON(prompt, triageSystemPrompt)
	if err != nil {
		return TriageResult{}, ExtractedFields{}, fmt.Errorf("triage call failed: %w", err)
	}

	triage, extracted := parseTriageResponse(response)
	return triage, extracted, nil
}

// parseTriageResponse maps the model output onto typed results,
// normalizing unexpected values to safe defaults
func parseTriageResponse(response map[string]interface{}) (TriageResult, ExtractedFields) {
	triageData := nestedMap(response, "triage")
	extractedData := nestedMap(response, "extracted_fields")

	urgency := Urgency(strings.ToUpper(stringValue(triageData, "urgency")))
	switch urgency {
	case UrgencyP0, UrgencyP1, UrgencyP2, UrgencyP3:
	default:
		urgency = UrgencyP3
	}

	category := Category(strings.ToLower(stringValue(triageData, "category")))
	if !validCategories[category] {
		category = CategoryOther
	}

	sentiment := Sentiment(strings.ToLower(stringValue(triageData, "sentiment")))
	if !validSentiments[sentiment] {
		sentiment = SentimentNeutral
	}

	confidence := floatValue(triageData, "confidence", 0.7)
	rationale := stringValue(triageData, "rationale")
	if rationale == "" {
		rationale = "Classification based on ticket content."
	}

	triage := TriageResult{
		Urgency:    urgency,
		Category:   category,
		Sentiment:  sentiment,
		Confidence: confidence,
		Rationale:  rationale,
	}

	extracted := ExtractedFields{
		Environment:       stringValue(extractedData, "environment"),
		Region:            stringValue(extractedData, "region"),
		ErrorMessage:      stringValue(extractedData, "error_message"),
		ReproductionSteps: stringValue(extractedData, "reproduction_steps"),
		Impact:            stringValue(extractedData, "impact"),
		RequestedAction:   stringValue(extractedData, "requested_action"),
		OrderID:           stringValue(extractedData, "order_id"),
		MissingFields:     stringSlice(extractedData, "missing_fields"),
	}

	return triage, extracted
}

func nestedMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

// stringValue reads a string field, treating the literal "null" from
// model output as absent
func stringValue(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func floatValue(m map[string]interface{}, key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func stringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
