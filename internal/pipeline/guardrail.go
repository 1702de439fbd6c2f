package pipeline

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/deskwatch/deskwatch/internal/kb"
	"github.com/deskwatch/deskwatch/internal/llm"
	"github.com/deskwatch/deskwatch/internal/utils"
)

const guardrailSystemPrompt = `You are a quality assurance system for customer support replies.

Your job is to check draft replies for:
1. Hallucinated claims not supported by the provided KB passages
2. Missing citations for policy/procedure statements
3. Inappropriate commitments or guarantees
4. Potential PII exposure
5. Tone and professionalism issues

Be strict but fair. Flag issues that could cause problems, but don't flag minor style preferences.`

const guardrailPromptTemplate = `Review this draft customer reply for issues.

DRAFT REPLY:
%s

AVAILABLE KB PASSAGES:
%s

CITATIONS USED:
%s

Check for:
1. Claims about policies, pricing, or procedures not supported by KB
2. Guarantees or commitments that shouldn't be made
3. Missing citations where claims are made
4. Any fabricated information
5. Inappropriate tone or content

Respond with JSON:
{
    "passed": true/false,
    "issues_found": ["list of specific issues found"],
    "fixes_applied": ["list of fixes that should be applied"],
    "severity": "none|low|medium|high"
}

If no issues found, return passed=true with empty arrays.`

var guaranteePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bguarantee\b`),
	regexp.MustCompile(`\b100%\b`),
	regexp.MustCompile(`\balways will\b`),
	regexp.MustCompile(`\bnever fail\b`),
	regexp.MustCompile(`\bdefinitely will\b`),
}

// promisePattern flags "promise" except soft forms like "promise to
// look into". The follow-up check happens in code because RE2 has no
// lookahead.
var promisePattern = regexp.MustCompile(`\bpromise\b( to (?:look|review|investigate))?`)

var pricingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`\d+%\s*(?:off|discount)`),
	regexp.MustCompile(`free\s+(?:month|trial|upgrade)`),
	regexp.MustCompile(`refund\s+(?:of|for)\s+\$?\d+`),
}

var timelinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`will be (?:fixed|resolved|completed) (?:by|within|in) \d+`),
	regexp.MustCompile(`(?:fix|resolve|complete) (?:by|within|in) \d+`),
}

var policyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`our policy (?:is|states|requires)`),
	regexp.MustCompile(`per our (?:policy|terms|agreement)`),
	regexp.MustCompile(`according to our (?:policy|guidelines)`),
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var safeEmailPrefixes = []string{"support@", "help@", "billing@", "security@", "example.com"}

// CheckGuardrails reviews a draft reply with rule-based checks plus an
// LLM pass. A failed LLM call degrades to rules only.
func CheckGuardrails(client llm.Client, reply ReplyDraft, kbHits []kb.Hit) GuardrailStatus {
	issues := runRuleChecks(reply, kbHits)

	llmResult, err := runLLMChecks(client, reply, kbHits)
	if err != nil {
		log.Printf("Warning: LLM guardrail check failed: %v", err)
		llmResult = GuardrailStatus{Passed: true, IssuesFound: []string{}, FixesApplied: []string{}}
	}

	allIssues := append(issues, llmResult.IssuesFound...)

	// Fail on any guarantee/fabrication finding, or on more than two
	// issues of any kind.
	passed := len(allIssues) == 0
	if !passed && len(allIssues) <= 2 {
		passed = true
		for _, issue := range allIssues {
			lower := strings.ToLower(issue)
			if strings.Contains(lower, "guarantee") || strings.Contains(lower, "fabricat") {
				passed = false
				break
			}
		}
	}

	return GuardrailStatus{
		Passed:       passed,
		IssuesFound:  allIssues,
		FixesApplied: llmResult.FixesApplied,
	}
}

func runRuleChecks(reply ReplyDraft, kbHits []kb.Hit) []string {
	issues := []string{}
	replyLower := strings.ToLower(reply.CustomerReply)

	for _, pattern := range guaranteePatterns {
		if pattern.MatchString(replyLower) {
			issues = append(issues, fmt.Sprintf("Contains potentially problematic guarantee language: %q", pattern.String()))
		}
	}
	for _, match := range promisePattern.FindAllStringSubmatch(replyLower, -1) {
		if match[1] == "" {
			issues = append(issues, `Contains potentially problematic guarantee language: "promise"`)
			break
		}
	}

	if len(reply.Citations) == 0 {
		for _, pattern := range pricingPatterns {
			if pattern.MatchString(replyLower) {
				issues = append(issues, fmt.Sprintf("Pricing/discount claim without KB citation: %q", pattern.String()))
			}
		}
	}

	for _, pattern := range timelinePatterns {
		if pattern.MatchString(replyLower) {
			issues = append(issues, fmt.Sprintf("Specific timeline commitment may need verification: %q", pattern.String()))
		}
	}

	if len(reply.Citations) == 0 {
		for _, pattern := range policyPatterns {
			if match := pattern.FindString(replyLower); match != "" {
				issues = append(issues, fmt.Sprintf("Policy claim without citation: %q", match))
			}
		}
	}

	for _, email := range emailPattern.FindAllString(reply.CustomerReply, -1) {
		if !isSafeEmail(email) {
			issues = append(issues, fmt.Sprintf("Potential customer email in reply: %s", email))
		}
	}

	if len(kbHits) > 0 && len(reply.Citations) == 0 {
		issues = append(issues, "KB passages available but no citations included in reply")
	}

	return issues
}

func isSafeEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, safe := range safeEmailPrefixes {
		if strings.Contains(lower, safe) {
			return true
		}
	}
	return false
}

func runLLMChecks(client llm.Client, reply ReplyDraft, kbHits []kb.Hit) (GuardrailStatus, error) {
	kbPassages := "No KB passages provided"
	if len(kbHits) > 0 {
		limit := len(kbHits)
		if limit > 5 {
			limit = 5
		}
		lines := make([]string, 0, limit)
		for _, hit := range kbHits[:limit] {
			passage := hit.Passage
			if len(passage) > 200 {
				passage = passage[:200]
			}
			lines = append(lines, fmt.Sprintf("%s: %s...", hit.Citation(), passage))
		}
		kbPassages = strings.Join(lines, "\n\n")
	}

	citations := "None"
	if len(reply.Citations) > 0 {
		citations = strings.Join(reply.Citations, ", ")
	}

	prompt := fmt.Sprintf(guardrailPromptTemplate, reply.CustomerReply, kbPassages, citations)
	response, err := client.CompleteJSON(prompt, guardrailSystemPrompt)
	if err != nil {
		return GuardrailStatus{}, err
	}

	passed := true
	if v, ok := response["passed"].(bool); ok {
		passed = v
	}
	return GuardrailStatus{
		Passed:       passed,
		IssuesFound:  stringSlice(response, "issues_found"),
		FixesApplied: stringSlice(response, "fixes_applied"),
	}, nil
}

// ========== Input guardrails ==========

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (?:all )?(?:previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)disregard (?:your|the) (?:instructions|guidelines|rules)`),
	regexp.MustCompile(`(?i)you are now (?:a|an|in) `),
	regexp.MustCompile(`(?i)reveal (?:your|the) system prompt`),
	regexp.MustCompile(`(?i)\bDAN mode\b`),
}

const maxTicketBodyLength = 20000

// CheckInputGuardrails screens an incoming ticket before processing.
// Injection attempts block the ticket outright; embedded sensitive data
// fails the check without blocking so the ticket can be sanitized.
func CheckInputGuardrails(ticket SupportTicket) InputGuardrailStatus {
	issues := []string{}
	blocked := false
	risk := "none"

	text := ticket.Subject + "\n" + ticket.Body

	for _, pattern := range injectionPatterns {
		if match := pattern.FindString(text); match != "" {
			issues = append(issues, fmt.Sprintf("Possible prompt injection attempt: %q", match))
			blocked = true
			risk = "high"
		}
	}

	if len(ticket.Body) > maxTicketBodyLength {
		issues = append(issues, fmt.Sprintf("Ticket body exceeds %d characters", maxTicketBodyLength))
		blocked = true
		if risk == "none" {
			risk = "medium"
		}
	}

	if utils.ContainsCardNumber(ticket.Body) {
		issues = append(issues, "Ticket body contains a possible payment card number")
		if risk == "none" {
			risk = "low"
		}
	}
	if utils.ContainsAPIKey(ticket.Body) {
		issues = append(issues, "Ticket body contains a possible API key")
		if risk == "none" {
			risk = "low"
		}
	}

	return InputGuardrailStatus{
		Passed:      len(issues) == 0,
		Blocked:     blocked,
		RiskLevel:   risk,
		IssuesFound: issues,
	}
}

// SanitizeInput redacts sensitive data from a ticket that failed input
// screening without being blocked. Returns a copy.
func SanitizeInput(ticket SupportTicket) SupportTicket {
	sanitized := ticket
	sanitized.Subject = utils.RedactSensitive(ticket.Subject)
	sanitized.Body = utils.RedactSensitive(ticket.Body)
	return sanitized
}
