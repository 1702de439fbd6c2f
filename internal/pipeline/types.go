// Package pipeline implements the support ticket triage pipeline:
// input screening, classification, routing, reply drafting and
// guardrail review.
package pipeline

import "time"

// Urgency is the ticket priority level
type Urgency string

const (
	UrgencyP0 Urgency = "P0" // production down, security breach, data loss
	UrgencyP1 Urgency = "P1" // major feature broken
	UrgencyP2 Urgency = "P2" // important but workaround exists
	UrgencyP3 Urgency = "P3" // minor issue or question
)

// Category classifies what the ticket is about
type Category string

const (
	CategoryBilling        Category = "billing"
	CategoryBug            Category = "bug"
	CategoryOutage         Category = "outage"
	CategoryFeatureRequest Category = "feature_request"
	CategorySecurity       Category = "security"
	CategoryOnboarding     Category = "onboarding"
	CategoryOther          Category = "other"
)

// Sentiment is the customer's tone
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Team is a routing target
type Team string

const (
	TeamSupport         Team = "support"
	TeamEngineering     Team = "engineering"
	TeamBilling         Team = "billing"
	TeamSecurity        Team = "security"
	TeamCustomerSuccess Team = "customer_success"
)

// AccountTier is the customer's subscription level
type AccountTier string

const (
	TierEnterprise   AccountTier = "enterprise"
	TierProfessional AccountTier = "professional"
	TierStarter      AccountTier = "starter"
	TierFree         AccountTier = "free"
)

// SupportTicket is the pipeline input
type SupportTicket struct {
	TicketID      string      `json:"ticket_id"`
	CreatedAt     time.Time   `json:"created_at"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	AccountTier   AccountTier `json:"account_tier"`
	Product       string      `json:"product"`
	Subject       string      `json:"subject"`
	Body          string      `json:"body"`
	Attachments   []string    `json:"attachments,omitempty"`
}

// TriageResult is the classification output
type TriageResult struct {
	Urgency    Urgency   `json:"urgency"`
	Category   Category  `json:"category"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
}

// ExtractedFields holds structured data pulled out of the ticket text
type ExtractedFields struct {
	Environment       string   `json:"environment,omitempty"`
	Region            string   `json:"region,omitempty"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	ReproductionSteps string   `json:"reproduction_steps,omitempty"`
	Impact            string   `json:"impact,omitempty"`
	RequestedAction   string   `json:"requested_action,omitempty"`
	OrderID           string   `json:"order_id,omitempty"`
	MissingFields     []string `json:"missing_fields"`
}

// RoutingDecision assigns the ticket to a team with an SLA
type RoutingDecision struct {
	Team       Team   `json:"team"`
	SLAHours   int    `json:"sla_hours"`
	Escalation bool   `json:"escalation"`
	Reasoning  string `json:"reasoning"`
}

// ReplyDraft is the generated customer response
type ReplyDraft struct {
	CustomerReply string   `json:"customer_reply"`
	InternalNotes string   `json:"internal_notes"`
	Citations     []string `json:"citations"`
}

// GuardrailStatus is the result of output review on a draft reply
type GuardrailStatus struct {
	Passed       bool     `json:"passed"`
	IssuesFound  []string `json:"issues_found"`
	FixesApplied []string `json:"fixes_applied"`
}

// InputGuardrailStatus is the result of screening the incoming ticket
// before any processing happens
type InputGuardrailStatus struct {
	Passed      bool     `json:"passed"`
	Blocked     bool     `json:"blocked"`
	RiskLevel   string   `json:"risk_level"` // none, low, medium, high
	IssuesFound []string `json:"issues_found"`
}

// AutoReplyInfo describes whether a cached reply from a similar recent
// ticket was reused
type AutoReplyInfo struct {
	IsAutoReply         bool    `json:"is_auto_reply"`
	SimilarityScore     float64 `json:"similarity_score"`
	MatchedTicketID     string  `json:"matched_ticket_id,omitempty"`
	TimeSinceMatchHours float64 `json:"time_since_match_hours,omitempty"`
}

// KBHitView is a knowledge base hit as surfaced in pipeline results
type KBHitView struct {
	DocName        string  `json:"doc_name"`
	Section        string  `json:"section"`
	Passage        string  `json:"passage"`
	RelevanceScore float64 `json:"relevance_score"`
	Citation       string  `json:"citation"`
}

// Result is the complete pipeline output for one ticket
type Result struct {
	TicketID             string               `json:"ticket_id"`
	Triage               TriageResult         `json:"triage"`
	ExtractedFields      ExtractedFields      `json:"extracted_fields"`
	Routing              RoutingDecision      `json:"routing"`
	KBHits               []KBHitView          `json:"kb_hits"`
	Reply                ReplyDraft           `json:"reply"`
	InputGuardrailStatus InputGuardrailStatus `json:"input_guardrail_status"`
	GuardrailStatus      GuardrailStatus      `json:"guardrail_status"`
	ProcessingMode       string               `json:"processing_mode"` // real or mock
	AutoReply            AutoReplyInfo        `json:"auto_reply"`
}
