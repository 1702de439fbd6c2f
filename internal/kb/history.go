package kb

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/llm"
)

const (
	// DefaultSimilarityThreshold is the minimum score for an auto-reply
	// from a previously answered ticket.
	DefaultSimilarityThreshold = 0.9

	// historyWindow bounds how far back repeat-question matching looks.
	historyWindow = 24 * time.Hour

	historyCandidates = 50
)

// HistoryMatch describes a previously processed ticket similar enough
// to reuse its reply
type HistoryMatch struct {
	MatchedTicketID string    `json:"matched_ticket_id"`
	Category        string    `json:"category"`
	ReplyText       string    `json:"reply_text"`
	SimilarityScore float64   `json:"similarity_score"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// TicketHistory stores processed tickets and finds recent repeats
type TicketHistory struct {
	db        *gorm.DB
	client    llm.Client
	threshold float64
	clock     func() time.Time
}

// NewTicketHistory creates a history store with the default threshold
func NewTicketHistory(db *gorm.DB, client llm.Client) *TicketHistory {
	return &TicketHistory{
		db:        db,
		client:    client,
		threshold: DefaultSimilarityThreshold,
		clock:     time.Now,
	}
}

// WithThreshold overrides the auto-reply similarity threshold
func (h *TicketHistory) WithThreshold(threshold float64) *TicketHistory {
	h.threshold = threshold
	return h
}

// WithClock overrides the time source for tests
func (h *TicketHistory) WithClock(clock func() time.Time) *TicketHistory {
	h.clock = clock
	return h
}

// Add embeds the ticket text and persists the processed record
func (h *TicketHistory) Add(record *database.TicketRecord) error {
	vectors, err := h.client.Embed([]string{record.Subject + " " + record.Body})
	if err != nil {
		return fmt.Errorf("failed to embed ticket %s: %w", record.TicketID, err)
	}
	record.Embedding = vectors[0]
	return database.SaveTicketRecord(h.db, record)
}

// FindSimilar looks for a ticket processed within the last 24 hours
// whose text is similar enough to reuse its reply. Returns nil when no
// candidate clears the threshold. The ticket's own id never matches.
func (h *TicketHistory) FindSimilar(ticketID, subject, body string) (*HistoryMatch, error) {
	records, err := database.RecentTicketRecords(h.db, h.clock().Add(-historyWindow), historyCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	vectors, err := h.client.Embed([]string{subject + " " + body})
	if err != nil {
		return nil, fmt.Errorf("failed to embed ticket: %w", err)
	}
	queryVec := vectors[0]

	var best *HistoryMatch
	for _, record := range records {
		if record.TicketID == ticketID || len(record.Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(queryVec, record.Embedding)
		if score < h.threshold {
			continue
		}
		if best == nil || score > best.SimilarityScore {
			best = &HistoryMatch{
				MatchedTicketID: record.TicketID,
				Category:        record.Category,
				ReplyText:       record.ReplyText,
				SimilarityScore: score,
				ProcessedAt:     record.ProcessedAt,
			}
		}
	}
	return best, nil
}

// Stats summarizes the stored ticket history
func (h *TicketHistory) Stats() (*database.TicketStats, error) {
	return database.GetTicketStats(h.db)
}
