package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	genai "google.golang.org/genai"
)

// LLMClient is a single structured-generation call against a remote model.
// Implementations only perform the call; retries, rate limiting and logging
// are layered on with middleware.
type LLMClient interface {
	Name() string
	Close() error
	// GenerateJSON sends prompt and asks for a JSON body shaped by schema.
	// A nil schema leaves the shape to the prompt.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error)
}

// ErrEmptyResponse is returned when the model answers with no candidate or
// no text.
var ErrEmptyResponse = errors.New("llm: empty response")
