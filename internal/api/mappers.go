package api

import "github.com/deskwatch/deskwatch/internal/database"

// IssueToListItem converts a database Issue to a compact list
// representation, omitting the description and workaround text.
func IssueToListItem(issue database.Issue) IssueListItem {
	return IssueListItem{
		ID:               issue.ID,
		IssueID:          issue.IssueID,
		Title:            issue.Title,
		Severity:         issue.Severity,
		Status:           issue.Status,
		AffectedServices: issue.AffectedServices,
		AffectedRegions:  issue.AffectedRegions,
		AlertCount:       len(issue.Alerts),
		DetectedAt:       issue.DetectedAt,
		ResolvedAt:       issue.ResolvedAt,
	}
}

// IssuesToListItems converts a slice of database Issues to list items.
func IssuesToListItems(issues []database.Issue) []IssueListItem {
	items := make([]IssueListItem, len(issues))
	for i, issue := range issues {
		items[i] = IssueToListItem(issue)
	}
	return items
}

// TicketToListItem converts a processed ticket record to a compact
// list representation without reply text or embedding.
func TicketToListItem(record database.TicketRecord) TicketListItem {
	return TicketListItem{
		ID:          record.ID,
		TicketID:    record.TicketID,
		Subject:     record.Subject,
		Urgency:     record.Urgency,
		Category:    record.Category,
		Sentiment:   record.Sentiment,
		Team:        record.Team,
		AutoReplied: record.AutoReplied,
		ProcessedAt: record.ProcessedAt,
	}
}

// TicketsToListItems converts a slice of ticket records to list items.
func TicketsToListItems(records []database.TicketRecord) []TicketListItem {
	items := make([]TicketListItem, len(records))
	for i, record := range records {
		items[i] = TicketToListItem(record)
	}
	return items
}
