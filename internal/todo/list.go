// Package todo is the persisted follow-up task list kept next to the
// analysis workspace.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
	"bizdiag/internal/types"
)

const Key = "todos"

var (
	ErrEmptyText = errors.New("todo: text is required")
	ErrNotFound  = errors.New("todo: not found")
)

// List keeps tasks in insertion order. Storage failures are logged; the
// in-memory list stays authoritative for the process.
type List struct {
	store kv.Store
	log   *zap.Logger
	newID func() string

	mu     sync.Mutex
	loaded bool
	items  []types.Todo
}

func New(store kv.Store, log *zap.Logger) *List {
	return &List{store: store, log: logging.OrNop(log), newID: uuid.NewString}
}

func (l *List) ensureLoaded(ctx context.Context) {
	if l.loaded {
		return
	}
	l.loaded = true
	if l.store == nil {
		return
	}
	raw, ok, err := l.store.Get(ctx, Key)
	if err != nil {
		l.log.Error("load todos", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, &l.items); err != nil {
		l.log.Error("decode todos", zap.Error(err))
		l.items = nil
	}
}

func (l *List) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	raw, err := json.Marshal(l.items)
	if err != nil {
		l.log.Error("encode todos", zap.Error(err))
		return
	}
	if err := l.store.Set(ctx, Key, raw); err != nil {
		l.log.Error("persist todos", zap.Error(err))
	}
}

func (l *List) All(ctx context.Context) []types.Todo {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoaded(ctx)
	return append([]types.Todo(nil), l.items...)
}

// Add appends a task with the trimmed text.
func (l *List) Add(ctx context.Context, text string) (types.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Todo{}, ErrEmptyText
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoaded(ctx)
	t := types.Todo{ID: l.newID(), Text: text}
	l.items = append(l.items, t)
	l.persist(ctx)
	return t, nil
}

// Toggle flips the completion flag and returns the updated task.
func (l *List) Toggle(ctx context.Context, id string) (types.Todo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoaded(ctx)
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Completed = !l.items[i].Completed
			l.persist(ctx)
			return l.items[i], nil
		}
	}
	return types.Todo{}, ErrNotFound
}

func (l *List) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoaded(ctx)
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}
