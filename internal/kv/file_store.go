package kv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type FileStoreConfig struct {
	Root      string
	IndexFile string
	// MaxEntries and MaxBytes bound the store; zero means unbounded.
	MaxEntries int
	MaxBytes   int64
	// TTL expires entries after the given duration; zero means never.
	TTL time.Duration
}

type fileEntry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

type fileIndex struct {
	Entries map[string]fileEntry `json:"entries"`
}

// FileStore persists each value in its own file named by the key hash and
// keeps a JSON index of keys for listing and LRU/TTL eviction.
type FileStore struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64
	ttl        time.Duration

	totalBytes int64
	entries    map[string]fileEntry
	now        func() time.Time
}

func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	indexFile := strings.TrimSpace(cfg.IndexFile)
	if indexFile == "" {
		indexFile = "index.json"
	}
	s := &FileStore{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, indexFile),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		ttl:        cfg.TTL,
		entries:    map[string]fileEntry{},
		now:        time.Now,
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	if err := s.cleanupAndEvictLocked(s.now()); err != nil {
		return nil, err
	}
	if err := s.persistIndexLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.expired(ent, now) {
		s.removeEntryLocked(key, ent)
		_ = s.persistIndexLocked()
		return nil, false, nil
	}
	raw, err := os.ReadFile(filepath.Join(s.dataDir, ent.File))
	if err != nil {
		if os.IsNotExist(err) {
			s.removeEntryLocked(key, ent)
			_ = s.persistIndexLocked()
			return nil, false, nil
		}
		return nil, false, err
	}
	// Access time only matters for eviction.
	if s.bounded() {
		ent.AccessedAt = now
		s.entries[key] = ent
		if err := s.persistIndexLocked(); err != nil {
			return nil, false, err
		}
	}
	return raw, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	now := s.now()
	file := hashedName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.totalBytes -= old.Size
	}
	if err := writeFileAtomic(filepath.Join(s.dataDir, file), value); err != nil {
		return err
	}
	ent := fileEntry{File: file, Size: int64(len(value)), AccessedAt: now}
	if s.ttl > 0 {
		ent.ExpiresAt = now.Add(s.ttl)
	}
	s.entries[key] = ent
	s.totalBytes += ent.Size

	if err := s.cleanupAndEvictLocked(now); err != nil {
		return err
	}
	return s.persistIndexLocked()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent, ok := s.entries[key]; ok {
		s.removeEntryLocked(key, ent)
		return s.persistIndexLocked()
	}
	return nil
}

func (s *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for k, ent := range s.entries {
		if s.expired(ent, now) || !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) bounded() bool {
	return s.maxEntries > 0 || s.maxBytes > 0
}

func (s *FileStore) expired(ent fileEntry, now time.Time) bool {
	return !ent.ExpiresAt.IsZero() && now.After(ent.ExpiresAt)
}

func (s *FileStore) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx fileIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return fmt.Errorf("decode index %s: %w", s.indexPath, err)
	}
	if idx.Entries != nil {
		s.entries = idx.Entries
	}
	s.totalBytes = 0
	for _, ent := range s.entries {
		s.totalBytes += ent.Size
	}
	return nil
}

func (s *FileStore) cleanupAndEvictLocked(now time.Time) error {
	for key, ent := range s.entries {
		if s.expired(ent, now) {
			s.removeEntryLocked(key, ent)
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, ent.File)); err != nil {
			if os.IsNotExist(err) {
				s.removeEntryLocked(key, ent)
				continue
			}
			return err
		}
	}
	for s.needsEvictionLocked() {
		key, ent, ok := s.leastRecentlyUsedLocked()
		if !ok {
			break
		}
		s.removeEntryLocked(key, ent)
	}
	return nil
}

func (s *FileStore) needsEvictionLocked() bool {
	if len(s.entries) == 0 {
		return false
	}
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		return true
	}
	return s.maxBytes > 0 && s.totalBytes > s.maxBytes
}

func (s *FileStore) leastRecentlyUsedLocked() (string, fileEntry, bool) {
	var (
		oldestKey string
		oldest    fileEntry
		found     bool
	)
	for key, ent := range s.entries {
		if !found || ent.AccessedAt.Before(oldest.AccessedAt) ||
			(ent.AccessedAt.Equal(oldest.AccessedAt) && key < oldestKey) {
			oldestKey, oldest, found = key, ent, true
		}
	}
	return oldestKey, oldest, found
}

func (s *FileStore) removeEntryLocked(key string, ent fileEntry) {
	delete(s.entries, key)
	s.totalBytes -= ent.Size
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
	_ = os.Remove(filepath.Join(s.dataDir, ent.File))
}

func (s *FileStore) persistIndexLocked() error {
	raw, err := json.MarshalIndent(fileIndex{Entries: s.entries}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.indexPath, raw)
}

func writeFileAtomic(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".bin"
}
