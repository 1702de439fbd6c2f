package pipeline

import (
	"fmt"
	"strings"

	"github.com/deskwatch/deskwatch/internal/kb"
	"github.com/deskwatch/deskwatch/internal/llm"
)

const replySystemPrompt = `You are an expert customer support agent drafting replies to support tickets.

Your replies must:
1. Be professional, empathetic, and helpful
2. Acknowledge the customer's issue
3. Reference knowledge base articles using [KB:doc_name#section] format
4. Only make claims supported by the provided KB passages
5. Ask for missing critical information politely
6. Provide clear next steps
7. Never fabricate policies, pricing, or commitments

You must also provide internal notes for the support agent handling this ticket.`

const replyPromptTemplate = `Draft a reply for this support ticket.

TICKET:
- ID: %s
- Customer: %s
- Account Tier: %s
- Subject: %s
- Body: %s

TRIAGE:
- Urgency: %s
- Category: %s
- Sentiment: %s

ROUTING:
- Team: %s
- SLA: %d hours
- Escalation: %s

EXTRACTED FIELDS:
%s

MISSING INFORMATION:
%s

RELEVANT KB PASSAGES:
%s

Generate a JSON response with:
{
    "customer_reply": "The full customer-facing reply text. Include [KB:doc#section] citations where appropriate.",
    "internal_notes": "Notes for the support agent: why routed this way, what to do next, any concerns.",
    "citations": ["KB:doc1#section1", "KB:doc2#section2"]
}

Remember:
- Use the customer's first name
- Match tone to sentiment (more empathetic for negative)
- Be specific about next steps and timelines
- Only cite KB passages that are actually relevant`

const maxReplyKBHits = 5

// DraftReply generates a customer reply with KB citations and internal
// notes for the handling agent
func DraftReply(client llm.Client, ticket SupportTicket, triage TriageResult,
	extracted ExtractedFields, routing RoutingDecision, kbHits []kb.Hit) (ReplyDraft, error) {

	escalation := "No"
	if routing.Escalation {
		escalation = "Yes"
	}

	prompt := fmt.Sprintf(replyPromptTemplate,
		ticket.TicketID, ticket.CustomerName, ticket.AccountTier,
		ticket.Subject, ticket.Body,
		triage.Urgency, triage.Category, triage.Sentiment,
		routing.Team, routing.SLAHours, escalation,
		formatExtractedFields(extracted),
		formatMissingFields(extracted.MissingFields),
		formatKBPassages(kbHits))

	response, err := client.CompleteJSON(prompt, replySystemPrompt)
	if err != nil {
		return ReplyDraft{}, fmt.Errorf("reply drafting failed: %w", err)
	}
	return parseReplyResponse(response, kbHits), nil
}

func formatExtractedFields(extracted ExtractedFields) string {
	var fields []string
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, fmt.Sprintf("- %s: %s", label, value))
		}
	}
	add("Environment", extracted.Environment)
	add("Region", extracted.Region)
	add("Error", extracted.ErrorMessage)
	add("Reproduction steps", extracted.ReproductionSteps)
	add("Impact", extracted.Impact)
	add("Requested action", extracted.RequestedAction)
	add("Order/Invoice ID", extracted.OrderID)

	if len(fields) == 0 {
		return "No specific fields extracted"
	}
	return strings.Join(fields, "\n")
}

func formatMissingFields(missing []string) string {
	if len(missing) == 0 {
		return "None identified"
	}
	return strings.Join(missing, ", ")
}

func formatKBPassages(hits []kb.Hit) string {
	if len(hits) == 0 {
		return "No relevant KB passages found."
	}
	if len(hits) > maxReplyKBHits {
		hits = hits[:maxReplyKBHits]
	}

	passages := make([]string, 0, len(hits))
	for i, hit := range hits {
		passage := hit.Passage
		suffix := ""
		if len(passage) > 300 {
			passage = passage[:300]
			suffix = "..."
		}
		passages = append(passages, fmt.Sprintf("%d. %s\n   %q%s", i+1, hit.Citation(), passage, suffix))
	}
	return strings.Join(passages, "\n\n")
}

func parseReplyResponse(response map[string]interface{}, kbHits []kb.Hit) ReplyDraft {
	citations := stringSlice(response, "citations")
	formatted := make([]string, 0, len(citations))
	for _, citation := range citations {
		if !strings.HasPrefix(citation, "[") {
			citation = "[" + citation + "]"
		}
		formatted = append(formatted, citation)
	}

	// Backfill citations from the hits the model was shown.
	if len(formatted) == 0 && len(kbHits) > 0 {
		limit := len(kbHits)
		if limit > 3 {
			limit = 3
		}
		for _, hit := range kbHits[:limit] {
			formatted = append(formatted, hit.Citation())
		}
	}

	return ReplyDraft{
		CustomerReply: stringValue(response, "customer_reply"),
		InternalNotes: stringValue(response, "internal_notes"),
		Citations:     formatted,
	}
}
