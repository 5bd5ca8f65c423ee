package llm

import (
	"context"
	"errors"
	"time"
)

// OutcomeKind tags how a retried call ended.
type OutcomeKind int

const (
	SuccessOutcome OutcomeKind = iota
	// TransportOutcome means every attempt failed before a usable body arrived.
	TransportOutcome
	// MalformedOutcome means a body arrived but could not be used. It is not retried.
	MalformedOutcome
)

func (k OutcomeKind) String() string {
	switch k {
	case SuccessOutcome:
		return "success"
	case TransportOutcome:
		return "transport"
	case MalformedOutcome:
		return "malformed"
	}
	return "unknown"
}

// Outcome is the tagged result of Retry.
type Outcome[T any] struct {
	Kind     OutcomeKind
	Value    T
	Err      error
	Attempts int
}

// DelayFunc returns the wait before attempt k (k >= 1 is the first retry).
type DelayFunc func(k int) time.Duration

// LinearBackoff waits k*base before attempt k.
func LinearBackoff(base time.Duration) DelayFunc {
	return func(k int) time.Duration {
		if base <= 0 || k <= 0 {
			return 0
		}
		return time.Duration(k) * base
	}
}

// Retry calls fn up to attempts times. A MalformedResponseError from fn ends
// the loop at once with MalformedOutcome; any other error is retried after
// delay(k). Context cancellation stops the loop and is reported as
// TransportOutcome with the context error.
func Retry[T any](ctx context.Context, attempts int, delay DelayFunc, fn func(ctx context.Context, attempt int) (T, error)) Outcome[T] {
	if attempts < 1 {
		attempts = 1
	}
	if delay == nil {
		delay = LinearBackoff(0)
	}
	var (
		zero T
		last error
	)
	for k := 0; k < attempts; k++ {
		if k > 0 {
			if err := sleep(ctx, delay(k)); err != nil {
				return Outcome[T]{Kind: TransportOutcome, Err: err, Attempts: k}
			}
		}
		v, err := fn(ctx, k)
		if err == nil {
			return Outcome[T]{Kind: SuccessOutcome, Value: v, Attempts: k + 1}
		}
		if IsMalformed(err) {
			return Outcome[T]{Kind: MalformedOutcome, Err: err, Attempts: k + 1}
		}
		last = err
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return Outcome[T]{Kind: TransportOutcome, Value: zero, Err: err, Attempts: k + 1}
		}
	}
	return Outcome[T]{Kind: TransportOutcome, Err: last, Attempts: attempts}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
