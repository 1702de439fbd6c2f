// Package notify delivers issue and alert notifications to Slack.
// Delivery is best-effort: a missing token disables the notifier and a
// failed post is logged, never propagated to the analysis path.
package notify

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"github.com/deskwatch/deskwatch/internal/database"
)

// chatPoster is the slice of the Slack API the notifier needs.
// *slack.Client satisfies it.
type chatPoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts issue summaries to a fixed alerts channel
type SlackNotifier struct {
	poster  chatPoster
	channel string
}

// NewSlackNotifier creates a notifier. An empty token returns a
// disabled notifier that drops all messages.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	n := &SlackNotifier{channel: channel}
	if botToken != "" {
		n.poster = slack.New(botToken)
	}
	return n
}

// Enabled reports whether the notifier will actually post
func (n *SlackNotifier) Enabled() bool {
	return n != nil && n.poster != nil
}

// NotifyIssue posts a formatted issue summary with its alerts
func (n *SlackNotifier) NotifyIssue(issue *database.Issue, alerts []database.Alert) error {
	if !n.Enabled() {
		return nil
	}

	text := FormatIssueMessage(issue, alerts)
	_, _, err := n.poster.PostMessage(n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("slack post to %s failed: %w", n.channel, err)
	}
	log.Printf("Posted issue %s to Slack channel %s", issue.IssueID, n.channel)
	return nil
}

// FormatIssueMessage renders an issue as Slack mrkdwn
func FormatIssueMessage(issue *database.Issue, alerts []database.Alert) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s *%s* (%s)\n\n", severityEmoji(issue.Severity), issue.Title, issue.IssueID))

	if issue.RootCause != "" {
		sb.WriteString(fmt.Sprintf("*Root Cause*\n%s\n", issue.RootCause))
	}
	if issue.CustomerImpact != "" {
		sb.WriteString(fmt.Sprintf("\n*Customer Impact*\n%s\n", issue.CustomerImpact))
	}
	if issue.RecommendedAction != "" {
		sb.WriteString(fmt.Sprintf("\n*Recommended Action*\n%s\n", issue.RecommendedAction))
	}

	if len(issue.AffectedServices) > 0 {
		sb.WriteString("\n*Affected Services*\n")
		for _, service := range issue.AffectedServices {
			sb.WriteString(fmt.Sprintf("• %s\n", service))
		}
	}

	if len(alerts) > 0 {
		sb.WriteString("\n*Alerts*\n")
		for _, alert := range alerts {
			sb.WriteString(fmt.Sprintf("• [%s] %s\n", alert.AlertType, alert.Subject))
		}
	}

	return sb.String()
}

func severityEmoji(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	default:
		return "⚠️"
	}
}
