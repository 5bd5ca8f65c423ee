package cases

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
	"bizdiag/internal/types"
)

const (
	HistoryKey = "repositorySearchHistory"
	MaxHistory = 5
)

// History is the persisted list of recent distinct searches, most recent
// first. Storage problems are logged and never returned.
type History struct {
	store kv.Store
	log   *zap.Logger

	mu     sync.Mutex
	loaded bool
	items  []types.SearchHistoryItem
}

func NewHistory(store kv.Store, log *zap.Logger) *History {
	return &History{store: store, log: logging.OrNop(log)}
}

func (h *History) ensureLoaded(ctx context.Context) {
	if h.loaded {
		return
	}
	h.loaded = true
	if h.store == nil {
		return
	}
	raw, ok, err := h.store.Get(ctx, HistoryKey)
	if err != nil {
		h.log.Error("load search history", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var items []types.SearchHistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		h.log.Error("decode search history", zap.Error(err))
		return
	}
	if len(items) > MaxHistory {
		items = items[:MaxHistory]
	}
	h.items = items
}

func (h *History) persist(ctx context.Context) {
	if h.store == nil {
		return
	}
	raw, err := json.Marshal(h.items)
	if err != nil {
		h.log.Error("encode search history", zap.Error(err))
		return
	}
	if err := h.store.Set(ctx, HistoryKey, raw); err != nil {
		h.log.Error("persist search history", zap.Error(err))
	}
}

func (h *History) List(ctx context.Context) []types.SearchHistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLoaded(ctx)
	return append([]types.SearchHistoryItem(nil), h.items...)
}

// Record moves item to the front, dropping an exact earlier repeat and
// anything beyond MaxHistory. The all-empty combination is ignored.
func (h *History) Record(ctx context.Context, item types.SearchHistoryItem) []types.SearchHistoryItem {
	item = Filter{Text: item.Query, Tier: item.Tier, Category: item.Category}.HistoryItem()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLoaded(ctx)
	if item.IsZero() {
		return append([]types.SearchHistoryItem(nil), h.items...)
	}
	next := make([]types.SearchHistoryItem, 0, MaxHistory)
	next = append(next, item)
	for _, it := range h.items {
		if len(next) == MaxHistory {
			break
		}
		if !it.Equal(item) {
			next = append(next, it)
		}
	}
	h.items = next
	h.persist(ctx)
	return append([]types.SearchHistoryItem(nil), h.items...)
}

func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = true
	h.items = nil
	if h.store == nil {
		return
	}
	if err := h.store.Delete(ctx, HistoryKey); err != nil {
		h.log.Error("clear search history", zap.Error(err))
	}
}
