package llmclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

// FakeResponse is one scripted reply. Err wins over Body.
type FakeResponse struct {
	Body string
	Err  error
}

// FakeClient replays scripted responses in order and records every prompt.
// Once the script is exhausted the last response repeats. Route, when set,
// answers instead of the script.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeResponse
	prompts []string
	Route   func(prompt string, schema *genai.Schema) (string, error)
}

func NewFakeClient(responses ...FakeResponse) *FakeClient {
	return &FakeClient{script: responses}
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	idx := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	route := f.Route
	var resp FakeResponse
	if route == nil && len(f.script) > 0 {
		if idx >= len(f.script) {
			idx = len(f.script) - 1
		}
		resp = f.script[idx]
	}
	f.mu.Unlock()

	if route != nil {
		body, err := route(prompt, schema)
		resp = FakeResponse{Body: body, Err: err}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if strings.TrimSpace(resp.Body) == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Body), nil
}

// Calls returns how many times GenerateJSON ran.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of the recorded prompts.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
