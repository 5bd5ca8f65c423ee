// Package pipeline holds the three remote-backed stages: diagnosis
// (questions, root cause, transcript check), redesign and impact. Every
// stage call goes cache first, then the remote model, then back into the
// cache.
package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	genai "google.golang.org/genai"

	"bizdiag/internal/cache/response"
	"bizdiag/internal/llm"
	"bizdiag/internal/logging"
)

// Runner executes stage operations.
type Runner struct {
	inv        *llm.Invoker
	cache      *response.Cache
	log        *zap.Logger
	maxRetries int
	group      singleflight.Group
}

type Option func(*Runner)

func WithCache(c *response.Cache) Option { return func(r *Runner) { r.cache = c } }

func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.log = logging.OrNop(l) } }

// WithMaxRetries sets the retry budget of the four main operations.
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

func NewRunner(inv *llm.Invoker, opts ...Option) *Runner {
	r := &Runner{inv: inv, log: zap.NewNop(), maxRetries: llm.DefaultMaxRetries}
	for _, o := range opts {
		o(r)
	}
	return r
}

// cached runs one operation. key is the cache input, prompt is built lazily
// and check rejects semantically unusable results as malformed. Concurrent
// calls with the same key share one remote round-trip.
func cached[T any](ctx context.Context, r *Runner, op string, key any, prompt func() (string, error), s *genai.Schema, check func(*T) error) (T, error) {
	var out T
	if r.cache.Lookup(ctx, op, key, &out) {
		if check == nil || check(&out) == nil {
			return out, nil
		}
		r.log.Warn("discarding unusable cached result", zap.String("op", op))
		out = *new(T)
	}

	fetch := func() (any, error) {
		p, err := prompt()
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := r.inv.Invoke(llm.WithOperation(ctx, op), p, s, r.maxRetries, &raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, llm.Malformed(raw, err)
		}
		if check != nil {
			if err := check(&v); err != nil {
				return nil, llm.Malformed(raw, err)
			}
		}
		r.cache.Store(ctx, op, key, v)
		return v, nil
	}

	var (
		v   any
		err error
	)
	if k, kerr := response.Key(op, key); kerr == nil {
		var shared bool
		v, err, shared = r.group.Do(k, fetch)
		if shared {
			r.log.Debug("shared in-flight call", zap.String("op", op))
		}
	} else {
		v, err = fetch()
	}
	if err != nil {
		return out, err
	}
	// Round-trip through JSON so callers sharing a flight never alias slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
