package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	genai "google.golang.org/genai"

	llmclient "bizdiag/internal/llm/client"
	"bizdiag/internal/logging"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, logging).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit throttles calls to rps with the given burst. rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	lim  *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, prompt, schema)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors at debug/warn level.
func WithLogging(logger *zap.Logger) Middleware {
	logger = logging.OrNop(logger)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logged{next: next, log: logger.With(zap.String("client", next.Name()))}
	}
}

type logged struct {
	next llmclient.LLMClient
	log  *zap.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }
func (l *logged) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	op := OperationFrom(ctx)
	start := time.Now()
	l.log.Debug("llm request", zap.String("op", op), zap.Int("prompt_bytes", len(prompt)))
	raw, err := l.next.GenerateJSON(ctx, prompt, schema)
	if err != nil {
		l.log.Warn("llm error", zap.String("op", op), zap.Duration("took", time.Since(start)), zap.Error(err))
		return raw, err
	}
	l.log.Debug("llm response", zap.String("op", op), zap.Duration("took", time.Since(start)), zap.Int("bytes", len(raw)))
	return raw, err
}

type operationKey struct{}

// WithOperation tags ctx with the pipeline operation name for logging.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation tagged by WithOperation, or "".
func OperationFrom(ctx context.Context) string {
	if v, ok := ctx.Value(operationKey{}).(string); ok {
		return v
	}
	return ""
}
