package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	llmclient "bizdiag/internal/llm/client"
	"bizdiag/internal/llm/schema"
	"bizdiag/internal/logging"
)

const (
	// DefaultMaxRetries is the number of extra attempts after the first.
	DefaultMaxRetries = 2
	// DefaultBackoffBase is the linear backoff unit.
	DefaultBackoffBase = time.Second
)

// Invoker performs one structured remote call with bounded retry, then
// decodes and validates the body.
type Invoker struct {
	client llmclient.LLMClient
	delay  DelayFunc
	log    *zap.Logger
}

type InvokerOption func(*Invoker)

// WithBackoff replaces the default linear one-second backoff.
func WithBackoff(d DelayFunc) InvokerOption {
	return func(i *Invoker) {
		if d != nil {
			i.delay = d
		}
	}
}

func WithInvokerLogger(l *zap.Logger) InvokerOption {
	return func(i *Invoker) { i.log = logging.OrNop(l) }
}

func NewInvoker(client llmclient.LLMClient, opts ...InvokerOption) *Invoker {
	inv := &Invoker{client: client, delay: LinearBackoff(DefaultBackoffBase), log: zap.NewNop()}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// Invoke calls the client at most maxRetries+1 times. Transport failures and
// empty bodies are retried; the first usable body is validated against s and
// decoded into out. Terminal errors are *RemoteUnavailableError,
// *RemoteError, *MalformedResponseError, or the context's own error.
func (i *Invoker) Invoke(ctx context.Context, prompt string, s *genai.Schema, maxRetries int, out any) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	op := OperationFrom(ctx)
	res := Retry(ctx, maxRetries+1, i.delay, func(ctx context.Context, attempt int) (json.RawMessage, error) {
		raw, err := i.client.GenerateJSON(ctx, prompt, s)
		if err == nil && len(bytes.TrimSpace(raw)) == 0 {
			err = llmclient.ErrEmptyResponse
		}
		if err != nil {
			i.log.Warn("remote call failed",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Int("of", maxRetries+1),
				zap.Error(err))
			return nil, err
		}
		return raw, nil
	})

	switch res.Kind {
	case SuccessOutcome:
	case MalformedOutcome:
		return res.Err
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if IsNetworkError(res.Err) {
			return &RemoteUnavailableError{Attempts: res.Attempts, Err: res.Err}
		}
		return &RemoteError{Attempts: res.Attempts, Message: res.Err.Error(), Err: res.Err}
	}

	body := bytes.TrimSpace(res.Value)
	if err := schema.Validate(body, s); err != nil {
		return Malformed(body, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return Malformed(body, err)
	}
	return nil
}
