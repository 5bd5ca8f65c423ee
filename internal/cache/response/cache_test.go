package response

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdiag/internal/kv"
	"bizdiag/internal/types"
)

func TestKeyIsIndependentOfKeyOrder(t *testing.T) {
	a := map[string]any{"problem": "lento", "answers": []string{"a", "b"}, "nested": map[string]any{"z": 1, "a": 2}}
	b := map[string]any{"nested": map[string]any{"a": 2, "z": 1}, "answers": []string{"a", "b"}, "problem": "lento"}

	ka, err := Key("analyzeRootCause", a)
	require.NoError(t, err)
	kb, err := Key("analyzeRootCause", b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.True(t, strings.HasPrefix(ka, KeyPrefix+"analyzeRootCause-"))
}

func TestKeyStructAndMapAgree(t *testing.T) {
	d := types.DiagnosisResult{Symptom: "s", Questions: []string{"q"}, Answers: []string{"a"}, RootCause: "r", Requirements: []string{"x"}}
	fromStruct, err := Key("generateRedesign", map[string]any{"diagnosis": d})
	require.NoError(t, err)
	fromMap, err := Key("generateRedesign", map[string]any{"diagnosis": map[string]any{
		"rootCause": "r", "requirements": []string{"x"}, "answers": []string{"a"}, "questions": []string{"q"}, "symptom": "s",
	}})
	require.NoError(t, err)
	assert.Equal(t, fromStruct, fromMap)
}

func TestKeyDistinguishesOperationsAndValues(t *testing.T) {
	k1, _ := Key("generateFollowUpQuestions", map[string]any{"problem": "a"})
	k2, _ := Key("analyzeRootCause", map[string]any{"problem": "a"})
	k3, _ := Key("generateFollowUpQuestions", map[string]any{"problem": "b"})
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestKeyDoesNotEscapeHTML(t *testing.T) {
	k, err := Key("op", map[string]any{"problem": "<svg> & co"})
	require.NoError(t, err)
	assert.Contains(t, k, "<svg> & co")
}

func TestStoreThenLookup(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemoryStore(0), nil)
	input := map[string]any{"problem": "El proceso de envío es demasiado lento"}
	want := []string{"q1", "q2", "q3", "q4"}

	var got []string
	assert.False(t, c.Lookup(ctx, "generateFollowUpQuestions", input, &got), "unseen input is a miss")

	c.Store(ctx, "generateFollowUpQuestions", input, want)
	require.True(t, c.Lookup(ctx, "generateFollowUpQuestions", input, &got))
	assert.Equal(t, want, got)

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, uint64(1), m.Stores)
}

type brokenStore struct{ kv.Store }

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("storage unavailable")
}

func (brokenStore) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestStorageFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{kv.NewMemoryStore(0)}, nil)

	c.Store(ctx, "op", map[string]any{"a": 1}, "v")
	var out string
	assert.False(t, c.Lookup(ctx, "op", map[string]any{"a": 1}, &out))
	m := c.Metrics()
	assert.Equal(t, uint64(1), m.StoreErrors)
	assert.Equal(t, uint64(1), m.LookupErrs)
}

func TestUncanonicalInputFallsBackToOneShotKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore(0)
	c := New(store, nil)
	c.now = func() time.Time { return time.Unix(0, 42) }
	bad := map[string]any{"v": math.NaN()}

	c.Store(ctx, "op", bad, "value")
	keys, err := store.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyPrefix + "op-42"}, keys)

	var out string
	assert.False(t, c.Lookup(ctx, "op", bad, &out))
}

func TestClearRemovesOnlyCacheEntries(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore(0)
	require.NoError(t, store.Set(ctx, "repositoryCases", []byte("[]")))
	c := New(store, nil)
	c.Store(ctx, "a", map[string]any{"x": 1}, 1)
	c.Store(ctx, "b", map[string]any{"x": 1}, 2)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.Len())
}
