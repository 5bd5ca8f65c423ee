package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	genai "google.golang.org/genai"

	llmclient "bizdiag/internal/llm/client"
)

type recordingClient struct {
	name  string
	trace *[]string
	next  llmclient.LLMClient
}

func (r *recordingClient) Name() string { return r.name }
func (r *recordingClient) Close() error { return nil }
func (r *recordingClient) GenerateJSON(ctx context.Context, p string, s *genai.Schema) (json.RawMessage, error) {
	*r.trace = append(*r.trace, r.name)
	return r.next.GenerateJSON(ctx, p, s)
}

func TestWrapOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			return &recordingClient{name: name, trace: &trace, next: next}
		}
	}
	c := Wrap(llmclient.NewFakeClient(llmclient.FakeResponse{Body: `{}`}), mw("A"), mw("B"))
	_, err := c.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, trace)
}

func TestWithLoggingRecordsOperation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := Wrap(llmclient.NewFakeClient(llmclient.FakeResponse{Body: `{"ok":true}`}), WithLogging(zap.New(core)))

	ctx := WithOperation(context.Background(), "analyzeRootCause")
	_, err := c.GenerateJSON(ctx, "prompt", nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("llm response").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analyzeRootCause", entries[0].ContextMap()["op"])
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := llmclient.NewFakeClient(llmclient.FakeResponse{Body: `{}`})
	assert.Same(t, llmclient.LLMClient(inner), RateLimit(0, 0)(inner))
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := Wrap(llmclient.NewFakeClient(llmclient.FakeResponse{Body: `{}`}), RateLimit(0.001, 1))
	_, err := c.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GenerateJSON(ctx, "p", nil)
	assert.Error(t, err)
}
