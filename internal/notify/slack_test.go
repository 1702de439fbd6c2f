package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/deskwatch/deskwatch/internal/database"
)

type fakePoster struct {
	channel string
	calls   int
	err     error
}

func (f *fakePoster) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channel = channelID
	f.calls++
	return channelID, "1700000000.000100", f.err
}

func testIssue() *database.Issue {
	return &database.Issue{
		IssueID:           "ISSUE-0042",
		Title:             "Latency spike on auth-api",
		Severity:          "critical",
		Status:            database.IssueStatusInvestigating,
		AffectedServices:  database.StringList{"auth-api"},
		RootCause:         "Connection pool exhaustion after deploy.",
		CustomerImpact:    "Login requests timing out for some users.",
		RecommendedAction: "Roll back the latest deploy.",
	}
}

func TestNotifyIssue(t *testing.T) {
	poster := &fakePoster{}
	n := &SlackNotifier{poster: poster, channel: "#eng-alerts"}

	alerts := []database.Alert{
		{AlertID: "AL-1", AlertType: "engineering", Subject: "[ALERT] Latency breach"},
		{AlertID: "AL-2", AlertType: "customer", Subject: "Service disruption update"},
	}
	if err := n.NotifyIssue(testIssue(), alerts); err != nil {
		t.Fatalf("NotifyIssue: %v", err)
	}
	if poster.calls != 1 {
		t.Errorf("calls = %d; want 1", poster.calls)
	}
	if poster.channel != "#eng-alerts" {
		t.Errorf("channel = %s", poster.channel)
	}
}

func TestNotifyIssue_PostError(t *testing.T) {
	poster := &fakePoster{err: errors.New("channel_not_found")}
	n := &SlackNotifier{poster: poster, channel: "#missing"}

	if err := n.NotifyIssue(testIssue(), nil); err == nil {
		t.Error("expected wrapped post error")
	}
}

func TestDisabledNotifierDropsMessages(t *testing.T) {
	n := NewSlackNotifier("", "#eng-alerts")
	if n.Enabled() {
		t.Error("empty token should disable the notifier")
	}
	if err := n.NotifyIssue(testIssue(), nil); err != nil {
		t.Errorf("disabled notifier must not error: %v", err)
	}

	var nilNotifier *SlackNotifier
	if nilNotifier.Enabled() {
		t.Error("nil notifier reports enabled")
	}
}

func TestFormatIssueMessage(t *testing.T) {
	msg := FormatIssueMessage(testIssue(), []database.Alert{
		{AlertType: "engineering", Subject: "[ALERT] Latency breach"},
	})

	for _, want := range []string{
		"🔴", "Latency spike on auth-api", "ISSUE-0042",
		"*Root Cause*", "*Customer Impact*", "*Recommended Action*",
		"• auth-api", "[engineering] [ALERT] Latency breach",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSeverityEmoji(t *testing.T) {
	tests := []struct {
		severity string
		expected string
	}{
		{"critical", "🔴"},
		{"HIGH", "🟠"},
		{"medium", "🟡"},
		{"low", "🟢"},
		{"unknown", "⚠️"},
	}
	for _, tt := range tests {
		if got := severityEmoji(tt.severity); got != tt.expected {
			t.Errorf("severityEmoji(%q) = %q; want %q", tt.severity, got, tt.expected)
		}
	}
}
