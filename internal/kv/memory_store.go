package kv

import (
	"context"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore keeps values in process memory. With maxEntries > 0 it evicts
// the least recently used key once the bound is exceeded.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	bounded *lru.Cache[string, []byte]
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	s := &MemoryStore{}
	if maxEntries > 0 {
		c, err := lru.New[string, []byte](maxEntries)
		if err == nil {
			s.bounded = c
			return s
		}
	}
	s.data = make(map[string][]byte)
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	if s.bounded != nil {
		raw, ok := s.bounded.Get(key)
		if !ok {
			return nil, false, nil
		}
		return append([]byte(nil), raw...), true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	copied := append([]byte(nil), value...)
	if s.bounded != nil {
		s.bounded.Add(key, copied)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if s.bounded != nil {
		s.bounded.Remove(key)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var all []string
	if s.bounded != nil {
		all = s.bounded.Keys()
	} else {
		s.mu.RLock()
		all = make([]string, 0, len(s.data))
		for k := range s.data {
			all = append(all, k)
		}
		s.mu.RUnlock()
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	if s.bounded != nil {
		return s.bounded.Len()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
