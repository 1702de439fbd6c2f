// Package jobs contains the background loops that connect the event
// generator to the threshold checker, the analyst and persistence.
package jobs

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/deskwatch/deskwatch/internal/database"
	"github.com/deskwatch/deskwatch/internal/monitoring"
	"github.com/deskwatch/deskwatch/internal/notify"
)

// checkedCapacity bounds the checked-event set. Larger than the event
// buffer, so an event cannot age out of the set while still buffered.
const checkedCapacity = 4096

// MonitorPoller drains new generator events through the threshold
// checker and hands flagged ones to the analyst. Each event is checked
// exactly once; analysis results are persisted and pushed to Slack.
type MonitorPoller struct {
	generator *monitoring.Generator
	checker   *monitoring.ThresholdChecker
	analyst   *monitoring.Analyst
	db        *gorm.DB
	notifier  *notify.SlackNotifier
	checked   *lru.Cache[string, struct{}]
}

// NewMonitorPoller creates a poller. The notifier may be nil or
// disabled; delivery then only marks alerts in the database.
func NewMonitorPoller(generator *monitoring.Generator, checker *monitoring.ThresholdChecker,
	analyst *monitoring.Analyst, db *gorm.DB, notifier *notify.SlackNotifier) *MonitorPoller {

	checked, _ := lru.New[string, struct{}](checkedCapacity)
	return &MonitorPoller{
		generator: generator,
		checker:   checker,
		analyst:   analyst,
		db:        db,
		notifier:  notifier,
		checked:   checked,
	}
}

// PollOnce processes all not-yet-checked buffered events, oldest first.
// Returns the number of issues created.
func (p *MonitorPoller) PollOnce() (int, error) {
	settings, err := database.GetOrCreateMonitorSettings(p.db)
	if err != nil {
		return 0, err
	}

	events := p.generator.Events(0)
	created := 0

	// Events come back newest first; check in arrival order so the
	// consecutive-violation streaks see the real sequence.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if _, seen := p.checked.Get(ev.EventID); seen {
			continue
		}
		p.checked.Add(ev.EventID, struct{}{})

		result := p.checker.CheckEvent(&ev)
		if result.Flagged || ev.Flagged {
			p.generator.SetFlags(ev.EventID, true, ev.Critical)
		}

		if !ev.Flagged || !settings.AutoAnalyze {
			continue
		}

		issue, alerts := p.analyst.AnalyzeFlaggedEvent(ev, p.generator.FlaggedEvents(0))
		if issue == nil {
			continue
		}
		if err := p.persistAndNotify(issue, alerts); err != nil {
			log.Printf("Failed to persist issue %s: %v", issue.IssueID, err)
			continue
		}
		created++
	}

	// Release the demo rendezvous only after the buffered pre-critical
	// events have been through the checker and analyst. Signaling is
	// idempotent per run, so every subsequent poll repeating it is fine.
	if len(events) > 0 {
		p.generator.SignalAIReady()
	}

	return created, nil
}

// Start runs the poll loop until stop is closed
func (p *MonitorPoller) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			created, err := p.PollOnce()
			if err != nil {
				log.Printf("Monitor poller error: %v", err)
			} else if created > 0 {
				log.Printf("Monitor poller: created %d issues", created)
			}
		case <-stop:
			log.Println("Monitor poller stopped")
			return
		}
	}
}

// persistAndNotify saves the issue with its alerts, posts to Slack and
// marks alerts delivered on success
func (p *MonitorPoller) persistAndNotify(issue *monitoring.Issue, alerts []monitoring.Alert) error {
	record, alertRecords := toRecords(issue, alerts)
	if err := database.SaveIssue(p.db, record, alertRecords); err != nil {
		return err
	}

	if !p.notifier.Enabled() {
		return nil
	}
	if err := p.notifier.NotifyIssue(record, alertRecords); err != nil {
		log.Printf("Slack delivery for issue %s failed: %v", issue.IssueID, err)
		return nil
	}
	for _, alert := range alertRecords {
		if err := database.MarkAlertDelivered(p.db, alert.AlertID); err != nil {
			log.Printf("Failed to mark alert %s delivered: %v", alert.AlertID, err)
		}
	}
	return nil
}

// toRecords converts analyst output to persistence models
func toRecords(issue *monitoring.Issue, alerts []monitoring.Alert) (*database.Issue, []database.Alert) {
	record := &database.Issue{
		IssueID:           issue.IssueID,
		Title:             issue.Title,
		Severity:          issue.Severity,
		Status:            database.IssueStatus(issue.Status),
		AffectedServices:  database.StringList(issue.AffectedServices),
		AffectedRegions:   database.StringList(issue.AffectedRegions),
		RelatedEvents:     database.StringList(issue.RelatedEvents),
		RootCause:         issue.RootCause,
		CustomerImpact:    issue.CustomerImpact,
		RecommendedAction: issue.RecommendedAction,
		Description:       issue.Description,
		Workaround:        issue.Workaround,
		DetectedAt:        issue.CreatedAt,
	}

	alertRecords := make([]database.Alert, 0, len(alerts))
	for _, alert := range alerts {
		alertRecords = append(alertRecords, database.Alert{
			AlertID:        alert.AlertID,
			AlertType:      alert.AlertType,
			Subject:        alert.Subject,
			Body:           alert.Body,
			RelatedIssueID: alert.RelatedIssueID,
		})
	}
	return record, alertRecords
}
