package pipeline

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/kb"
	"github.com/deskwatch/deskwatch/internal/llm"
	"github.com/deskwatch/deskwatch/internal/metrics"
)

const blockedCustomerReply = `Thank you for contacting us.

We were unable to process your request at this time. If you believe this is an error, please resubmit your ticket with additional details about your issue.

For urgent matters, please contact our support team directly.

Best regards,
Support Team`

// Processor runs support tickets through the full triage pipeline
type Processor struct {
	client    llm.Client
	fallback  llm.Client
	retriever *kb.Retriever
	history   *kb.TicketHistory
	router    *Router
	clock     func() time.Time
}

// NewProcessor wires the pipeline stages together. The history store
// is optional; without it auto-reply matching is skipped.
func NewProcessor(client llm.Client, retriever *kb.Retriever, history *kb.TicketHistory) *Processor {
	return &Processor{
		client:    client,
		fallback:  llm.NewMockClient(),
		retriever: retriever,
		history:   history,
		router:    NewRouter(),
		clock:     time.Now,
	}
}

// WithRouter replaces the default router (for SLA overrides)
func (p *Processor) WithRouter(router *Router) *Processor {
	p.router = router
	return p
}

// WithClock overrides the time source for tests
func (p *Processor) WithClock(clock func() time.Time) *Processor {
	p.clock = clock
	return p
}

func (p *Processor) mode() string {
	if p.client.IsMock() {
		return "mock"
	}
	return "real"
}

// Process runs one ticket through input screening, auto-reply
// matching, triage, retrieval, routing, reply drafting and guardrails
func (p *Processor) Process(ticket SupportTicket) (*Result, error) {
	inputStatus := CheckInputGuardrails(ticket)
	if inputStatus.Blocked {
		log.Printf("Ticket %s blocked by input guardrails (risk: %s)", ticket.TicketID, inputStatus.RiskLevel)
		return p.blockedResult(ticket, inputStatus), nil
	}
	if !inputStatus.Passed {
		ticket = SanitizeInput(ticket)
	}

	// Repeat-question check: reuse a validated recent reply when a
	// near-identical ticket was already answered.
	if p.history != nil {
		match, err := p.history.FindSimilar(ticket.TicketID, ticket.Subject, ticket.Body)
		if err != nil {
			log.Printf("Warning: ticket history lookup failed: %v", err)
		} else if match != nil {
			return p.autoReplyResult(ticket, inputStatus, match)
		}
	}

	triage, extracted := p.triage(ticket)
	kbHits := p.searchKB(ticket, triage)
	routing := p.router.Route(triage, ticket.AccountTier)
	reply := p.draftReply(ticket, triage, extracted, routing, kbHits)
	guardrail := CheckGuardrails(p.client, reply, kbHits)

	result := &Result{
		TicketID:             ticket.TicketID,
		Triage:               triage,
		ExtractedFields:      extracted,
		Routing:              routing,
		KBHits:               toHitViews(kbHits),
		Reply:                reply,
		InputGuardrailStatus: inputStatus,
		GuardrailStatus:      guardrail,
		ProcessingMode:       p.mode(),
		AutoReply:            AutoReplyInfo{},
	}

	p.recordHistory(ticket, result, false)
	metrics.ObserveTicketProcessed(result.ProcessingMode)
	return result, nil
}

// triage classifies the ticket, falling back to the offline provider
// when the primary LLM fails
func (p *Processor) triage(ticket SupportTicket) (TriageResult, ExtractedFields) {
	triage, extracted, err := TriageAndExtract(p.client, ticket)
	if err != nil {
		log.Printf("Warning: LLM triage failed: %v", err)
		triage, extracted, _ = TriageAndExtract(p.fallback, ticket)
	}
	return triage, extracted
}

func (p *Processor) searchKB(ticket SupportTicket, triage TriageResult) []kb.Hit {
	if p.retriever == nil {
		return nil
	}
	hits, err := p.retriever.SearchWithContext(ticket.Subject, ticket.Body, string(triage.Category), 5)
	if err != nil {
		log.Printf("Warning: KB search failed: %v", err)
		return nil
	}
	return hits
}

func (p *Processor) draftReply(ticket SupportTicket, triage TriageResult,
	extracted ExtractedFields, routing RoutingDecision, kbHits []kb.Hit) ReplyDraft {

	reply, err := DraftReply(p.client, ticket, triage, extracted, routing, kbHits)
	if err != nil {
		log.Printf("Warning: LLM reply generation failed: %v", err)
		reply, _ = DraftReply(p.fallback, ticket, triage, extracted, routing, kbHits)
	}
	return reply
}

// autoReplyResult builds a result that reuses a validated reply from a
// similar recent ticket. Triage still runs for classification.
func (p *Processor) autoReplyResult(ticket SupportTicket, inputStatus InputGuardrailStatus, match *kb.HistoryMatch) (*Result, error) {
	triage, extracted := p.triage(ticket)
	routing := p.router.Route(triage, ticket.AccountTier)
	kbHits := p.searchKB(ticket, triage)

	timeSince := p.clock().Sub(match.ProcessedAt).Hours()

	reply := ReplyDraft{
		CustomerReply: match.ReplyText,
		InternalNotes: fmt.Sprintf("[AUTO-REPLY] Based on similar ticket %s (similarity: %.2f%%)",
			match.MatchedTicketID, match.SimilarityScore*100),
		Citations: []string{},
	}

	result := &Result{
		TicketID:             ticket.TicketID,
		Triage:               triage,
		ExtractedFields:      extracted,
		Routing:              routing,
		KBHits:               toHitViews(kbHits),
		Reply:                reply,
		InputGuardrailStatus: inputStatus,
		GuardrailStatus: GuardrailStatus{
			Passed:       true,
			IssuesFound:  []string{},
			FixesApplied: []string{"Auto-reply from validated previous response"},
		},
		ProcessingMode: p.mode(),
		AutoReply: AutoReplyInfo{
			IsAutoReply:         true,
			SimilarityScore:     match.SimilarityScore,
			MatchedTicketID:     match.MatchedTicketID,
			TimeSinceMatchHours: math.Round(timeSince*100) / 100,
		},
	}

	p.recordHistory(ticket, result, true)
	metrics.ObserveTicketProcessed(result.ProcessingMode)
	return result, nil
}

// blockedResult builds the fixed response for tickets that failed
// input screening hard
func (p *Processor) blockedResult(ticket SupportTicket, inputStatus InputGuardrailStatus) *Result {
	issueSummary := "none"
	if len(inputStatus.IssuesFound) > 0 {
		issueSummary = inputStatus.IssuesFound[0]
		for _, issue := range inputStatus.IssuesFound[1:] {
			issueSummary += ", " + issue
		}
	}

	return &Result{
		TicketID: ticket.TicketID,
		Triage: TriageResult{
			Urgency:    UrgencyP3,
			Category:   CategoryOther,
			Sentiment:  SentimentNegative,
			Confidence: 0,
			Rationale:  "Ticket blocked by input guardrails - not processed",
		},
		ExtractedFields: ExtractedFields{
			MissingFields: []string{"Ticket not analyzed due to guardrail block"},
		},
		Routing: RoutingDecision{
			Team:       TeamSecurity,
			SLAHours:   24,
			Escalation: true,
			Reasoning:  "Blocked by input guardrails - routed to security for review",
		},
		Reply: ReplyDraft{
			CustomerReply: blockedCustomerReply,
			InternalNotes: fmt.Sprintf("[BLOCKED BY INPUT GUARDRAILS]\n\nRisk Level: %s\nIssues Detected: %s\n\nACTION REQUIRED: Review this ticket manually before any response.",
				inputStatus.RiskLevel, issueSummary),
			Citations: []string{},
		},
		InputGuardrailStatus: inputStatus,
		GuardrailStatus:      GuardrailStatus{Passed: true, IssuesFound: []string{}, FixesApplied: []string{}},
		ProcessingMode:       p.mode(),
		AutoReply:            AutoReplyInfo{},
	}
}

// recordHistory stores the processed ticket for future repeat matching
func (p *Processor) recordHistory(ticket SupportTicket, result *Result, autoReplied bool) {
	if p.history == nil {
		return
	}
	record := &database.TicketRecord{
		TicketID:      ticket.TicketID,
		CustomerID:    ticket.CustomerEmail,
		Subject:       ticket.Subject,
		Body:          ticket.Body,
		Channel:       ticket.Product,
		Urgency:       string(result.Triage.Urgency),
		Category:      string(result.Triage.Category),
		Sentiment:     string(result.Triage.Sentiment),
		Queue:         string(result.Routing.Team),
		Team:          string(result.Routing.Team),
		ReplyText:     result.Reply.CustomerReply,
		AutoReplied:   autoReplied,
		GuardrailPass: result.GuardrailStatus.Passed,
	}
	if err := p.history.Add(record); err != nil {
		log.Printf("Warning: failed to record ticket history: %v", err)
	}
}

func toHitViews(hits []kb.Hit) []KBHitView {
	views := make([]KBHitView, 0, len(hits))
	for _, hit := range hits {
		views = append(views, KBHitView{
			DocName:        hit.DocName,
			Section:        hit.Section,
			Passage:        hit.Passage,
			RelevanceScore: hit.RelevanceScore,
			Citation:       hit.Citation(),
		})
	}
	return views
}
