package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bizdiag/internal/cache/response"
	"bizdiag/internal/kv"
)

func TestFrontendTraceIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewDebugHandler(nil, nil, zap.New(core))

	rec := httptest.NewRecorder()
	body := `{"session_id":"s1","stage":"redesign","level":"warn","fields":{"ms":12}}`
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("frontend trace").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "s1", entries[0].ContextMap()["session"])

	rec = httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(`{"stage":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodGet, "/debug/frontend-trace", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCacheStats(t *testing.T) {
	ctx := context.Background()
	store := kv.NewCachedStore(kv.NewMemoryStore(0), kv.DefaultCacheConfig())
	cache := response.New(store, nil)
	cache.Store(ctx, "op", map[string]any{"a": 1}, "v")
	var out string
	require.True(t, cache.Lookup(ctx, "op", map[string]any{"a": 1}, &out))

	rec := httptest.NewRecorder()
	NewDebugHandler(cache, store, nil).HandleCacheStats(rec, httptest.NewRequest(http.MethodGet, "/debug/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Responses response.MetricsSnapshot `json:"responses"`
		Store     kv.MetricsSnapshot       `json:"store"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(1), got.Responses.Hits)
	assert.Equal(t, uint64(1), got.Responses.Stores)
	assert.Equal(t, uint64(1), got.Store.OriginWrites)
}
