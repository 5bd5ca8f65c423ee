package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	llmclient "bizdiag/internal/llm/client"
)

var questionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"questions"},
}

func noDelay(int) time.Duration { return 0 }

func TestInvokeRetryBound(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("retries=%d", maxRetries), func(t *testing.T) {
			fake := llmclient.NewFakeClient(llmclient.FakeResponse{Err: errors.New("quota exhausted")})
			inv := NewInvoker(fake, WithBackoff(noDelay))

			var out map[string]any
			err := inv.Invoke(context.Background(), "p", questionsSchema, maxRetries, &out)

			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, maxRetries+1, fake.Calls())
			assert.Equal(t, maxRetries+1, remote.Attempts)
			assert.Contains(t, remote.Message, "quota exhausted")
		})
	}
}

func TestInvokeRecoversAfterTransientFailures(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.FakeResponse{Err: errors.New("boom")},
		llmclient.FakeResponse{Body: "  "},
		llmclient.FakeResponse{Body: `{"questions": ["a","b"]}`},
	)
	inv := NewInvoker(fake, WithBackoff(noDelay))

	var out struct {
		Questions []string `json:"questions"`
	}
	require.NoError(t, inv.Invoke(context.Background(), "p", questionsSchema, 2, &out))
	assert.Equal(t, []string{"a", "b"}, out.Questions)
	assert.Equal(t, 3, fake.Calls())
}

func TestInvokeEmptyBodyExhaustsAsRemoteError(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeResponse{Body: ""})
	inv := NewInvoker(fake, WithBackoff(noDelay))

	err := inv.Invoke(context.Background(), "p", questionsSchema, 1, nil)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.ErrorIs(t, err, llmclient.ErrEmptyResponse)
	assert.Equal(t, 2, fake.Calls())
}

func TestInvokeNetworkFailureIsUnavailable(t *testing.T) {
	cases := map[string]error{
		"op error":       &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")},
		"conn refused":   fmt.Errorf("post: %w", syscall.ECONNREFUSED),
		"dns":            &net.DNSError{Err: "no such host", Name: "example.invalid"},
		"message sniff":  errors.New("failed to fetch"),
		"deadline inner": fmt.Errorf("attempt: %w", context.DeadlineExceeded),
	}
	for name, cause := range cases {
		t.Run(name, func(t *testing.T) {
			fake := llmclient.NewFakeClient(llmclient.FakeResponse{Err: cause})
			inv := NewInvoker(fake, WithBackoff(noDelay))
			err := inv.Invoke(context.Background(), "p", questionsSchema, 1, nil)
			var unavailable *RemoteUnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.True(t, IsUnavailable(err))
		})
	}
}

func TestInvokeMalformedIsNotRetried(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `{"questions": [`,
		"wrong shape":  `{"questions": "one"}`,
		"missing prop": `{"other": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			fake := llmclient.NewFakeClient(llmclient.FakeResponse{Body: body})
			inv := NewInvoker(fake, WithBackoff(noDelay))
			var out map[string]any
			err := inv.Invoke(context.Background(), "p", questionsSchema, 2, &out)

			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, body, malformed.Body)
			assert.Equal(t, 1, fake.Calls())
		})
	}
}

func TestInvokeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := llmclient.NewFakeClient()
	fake.Route = func(string, *genai.Schema) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	}
	inv := NewInvoker(fake, WithBackoff(LinearBackoff(time.Hour)))

	err := inv.Invoke(ctx, "p", questionsSchema, 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.Calls())
}

func TestLinearBackoff(t *testing.T) {
	d := LinearBackoff(time.Second)
	assert.Equal(t, time.Duration(0), d(0))
	assert.Equal(t, time.Second, d(1))
	assert.Equal(t, 2*time.Second, d(2))
	assert.Equal(t, 3*time.Second, d(3))
}

func TestRetryReportsDelaysInOrder(t *testing.T) {
	var asked []int
	delay := func(k int) time.Duration { asked = append(asked, k); return 0 }
	out := Retry(context.Background(), 3, delay, func(context.Context, int) (int, error) {
		return 0, errors.New("no")
	})
	assert.Equal(t, TransportOutcome, out.Kind)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []int{1, 2}, asked)
}

func TestRetryStopsOnMalformedBody(t *testing.T) {
	calls := 0
	out := Retry(context.Background(), 3, LinearBackoff(0), func(context.Context, int) (int, error) {
		calls++
		return 0, Malformed([]byte("<html>"), errors.New("not json"))
	})
	assert.Equal(t, MalformedOutcome, out.Kind)
	assert.Equal(t, "malformed", out.Kind.String())
	assert.Equal(t, 1, calls)
	assert.True(t, IsMalformed(out.Err))
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.False(t, IsNetworkError(errors.New("invalid argument: model not found")))
	assert.True(t, IsNetworkError(fmt.Errorf("wrap: %w", syscall.ECONNRESET)))
	assert.True(t, IsNetworkError(errors.New("Network request failed")))
}
