package utils

import (
	"regexp"
	"strings"
)

// Patterns for sensitive data that must never reach logs or prompts
var (
	emailRedactPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	cardRedactPattern  = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	apiKeyPattern      = regexp.MustCompile(`\bsk-[a-zA-Z0-9]{32,}\b`)
	phoneRedactPattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
)

// RedactEmail replaces email addresses in text
func RedactEmail(text string) string {
	return emailRedactPattern.ReplaceAllString(text, "[EMAIL_REDACTED]")
}

// RedactSensitive replaces emails, card numbers, API keys and phone
// numbers in text. Card numbers are redacted before phone numbers so
// the shorter pattern cannot split a card in half.
func RedactSensitive(text string) string {
	text = emailRedactPattern.ReplaceAllString(text, "[EMAIL_REDACTED]")
	text = cardRedactPattern.ReplaceAllString(text, "[CARD_REDACTED]")
	text = apiKeyPattern.ReplaceAllString(text, "[API_KEY_REDACTED]")
	text = phoneRedactPattern.ReplaceAllString(text, "[PHONE_REDACTED]")
	return text
}

// ContainsCardNumber reports whether text has a payment-card-shaped number
func ContainsCardNumber(text string) bool {
	return cardRedactPattern.MatchString(text)
}

// ContainsAPIKey reports whether text has an API-key-shaped token
func ContainsAPIKey(text string) bool {
	return apiKeyPattern.MatchString(text)
}

// EscapeForLogging truncates text and flattens it to a single line for
// safe log output
func EscapeForLogging(text string, maxLen int) string {
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	text = strings.ReplaceAll(text, "\n", "\\n")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = strings.ReplaceAll(text, "\t", "\\t")
	return text
}

// RedactingLogText prepares free text for logging: redact then escape
func RedactingLogText(text string, maxLen int) string {
	return EscapeForLogging(RedactSensitive(text), maxLen)
}
