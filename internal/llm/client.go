// Package llm provides the text-generation collaborator used by the
// monitoring analyst and the ticket pipeline. Callers depend only on
// the Client interface; the OpenAI-compatible implementation and the
// deterministic mock are interchangeable.
package llm

import "errors"

// ErrNotConfigured is returned when no API key is available
var ErrNotConfigured = errors.New("llm: no API key configured")

// Client is the capability contract for a text-generation service.
// Implementations may have unknown latency and availability; callers
// must tolerate errors without crashing.
type Client interface {
	// Complete returns free-form text for a prompt
	Complete(prompt, systemPrompt string) (string, error)

	// CompleteJSON returns structured output parsed from a JSON reply
	CompleteJSON(prompt, systemPrompt string) (map[string]interface{}, error)

	// Embed returns one embedding vector per input text
	Embed(texts []string) ([][]float32, error)

	// IsMock reports whether this client produces canned output
	IsMock() bool
}
