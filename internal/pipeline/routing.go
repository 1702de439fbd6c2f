package pipeline

import (
	"fmt"
	"strings"
)

const defaultSLAHours = 72

type slaKey struct {
	tier    AccountTier
	urgency Urgency
}

// slaMatrix maps (account tier, urgency) to response SLA hours
var slaMatrix = map[slaKey]int{
	{TierEnterprise, UrgencyP0}: 1,
	{TierEnterprise, UrgencyP1}: 4,
	{TierEnterprise, UrgencyP2}: 24,
	{TierEnterprise, UrgencyP3}: 72,

	{TierProfessional, UrgencyP0}: 4,
	{TierProfessional, UrgencyP1}: 8,
	{TierProfessional, UrgencyP2}: 48,
	{TierProfessional, UrgencyP3}: 120,

	{TierStarter, UrgencyP0}: 8,
	{TierStarter, UrgencyP1}: 24,
	{TierStarter, UrgencyP2}: 72,
	{TierStarter, UrgencyP3}: 168,

	{TierFree, UrgencyP0}: 24,
	{TierFree, UrgencyP1}: 48,
	{TierFree, UrgencyP2}: 168,
	{TierFree, UrgencyP3}: 336,
}

// categoryTeamMap assigns each category a default team
var categoryTeamMap = map[Category]Team{
	CategoryBilling:        TeamBilling,
	CategoryBug:            TeamEngineering,
	CategoryOutage:         TeamEngineering,
	CategoryFeatureRequest: TeamCustomerSuccess,
	CategorySecurity:       TeamSecurity,
	CategoryOnboarding:     TeamCustomerSuccess,
	CategoryOther:          TeamSupport,
}

// Router computes routing decisions. SLA overrides from the rules file
// replace the urgency defaults across all tiers proportionally.
type Router struct {
	slaOverrides map[Urgency]int
}

// NewRouter creates a router with the built-in SLA matrix
func NewRouter() *Router {
	return &Router{}
}

// WithSLAOverrides applies per-urgency SLA hours from configuration.
// Keys are urgency strings (P0..P3).
func (r *Router) WithSLAOverrides(overrides map[string]int) *Router {
	if len(overrides) == 0 {
		return r
	}
	r.slaOverrides = make(map[Urgency]int, len(overrides))
	for k, v := range overrides {
		if v > 0 {
			r.slaOverrides[Urgency(strings.ToUpper(k))] = v
		}
	}
	return r
}

// Route computes the routing decision from triage results and tier
func (r *Router) Route(triage TriageResult, tier AccountTier) RoutingDecision {
	team, ok := categoryTeamMap[triage.Category]
	if !ok {
		team = TeamSupport
	}

	// P0 overrides: security stays with security, outage/bug go to
	// engineering regardless of the category default.
	if triage.Urgency == UrgencyP0 {
		switch triage.Category {
		case CategorySecurity:
			team = TeamSecurity
		case CategoryOutage, CategoryBug:
			team = TeamEngineering
		}
	}

	slaHours := r.slaHours(tier, triage.Urgency)
	escalation := shouldEscalate(triage, tier)

	return RoutingDecision{
		Team:       team,
		SLAHours:   slaHours,
		Escalation: escalation,
		Reasoning:  buildRoutingReasoning(triage, tier, team, escalation),
	}
}

func (r *Router) slaHours(tier AccountTier, urgency Urgency) int {
	if hours, ok := r.slaOverrides[urgency]; ok {
		return hours
	}
	if hours, ok := slaMatrix[slaKey{tier, urgency}]; ok {
		return hours
	}
	return defaultSLAHours
}

// shouldEscalate applies the escalation policy:
// P0 always; P1 for enterprise; security for enterprise/professional;
// negative sentiment at P1/P2 for enterprise.
func shouldEscalate(triage TriageResult, tier AccountTier) bool {
	if triage.Urgency == UrgencyP0 {
		return true
	}
	if triage.Urgency == UrgencyP1 && tier == TierEnterprise {
		return true
	}
	if triage.Category == CategorySecurity && (tier == TierEnterprise || tier == TierProfessional) {
		return true
	}
	if tier == TierEnterprise && triage.Sentiment == SentimentNegative &&
		(triage.Urgency == UrgencyP1 || triage.Urgency == UrgencyP2) {
		return true
	}
	return false
}

func buildRoutingReasoning(triage TriageResult, tier AccountTier, team Team, escalation bool) string {
	var reasons []string

	switch team {
	case TeamEngineering:
		reasons = append(reasons, fmt.Sprintf("Routed to engineering due to %s classification", triage.Category))
	case TeamBilling:
		reasons = append(reasons, "Routed to billing team for invoice/payment handling")
	case TeamSecurity:
		reasons = append(reasons, "Routed to security team for security-related concern")
	case TeamCustomerSuccess:
		reasons = append(reasons, fmt.Sprintf("Routed to customer success for %s", triage.Category))
	default:
		reasons = append(reasons, "Routed to general support for initial handling")
	}

	reasons = append(reasons, fmt.Sprintf("SLA set based on %s tier and %s priority", tier, triage.Urgency))

	if escalation {
		switch {
		case triage.Urgency == UrgencyP0:
			reasons = append(reasons, "Escalated due to P0 critical priority")
		case tier == TierEnterprise:
			reasons = append(reasons, "Escalated per enterprise account policy")
		case triage.Category == CategorySecurity:
			reasons = append(reasons, "Escalated due to security classification")
		}
	}

	return strings.Join(reasons, ". ") + "."
}

// SLADescription renders SLA hours in a human-readable form
func SLADescription(slaHours int) string {
	switch {
	case slaHours <= 1:
		return "1 hour"
	case slaHours < 24:
		return fmt.Sprintf("%d hours", slaHours)
	case slaHours == 24:
		return "24 hours (1 day)"
	case slaHours < 168:
		return fmt.Sprintf("%d hours (%d days)", slaHours, slaHours/24)
	default:
		weeks := slaHours / 168
		plural := ""
		if weeks > 1 {
			plural = "s"
		}
		return fmt.Sprintf("%d hours (%d week%s)", slaHours, weeks, plural)
	}
}
