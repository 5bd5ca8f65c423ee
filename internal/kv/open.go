package kv

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string
	// Path is the root directory for "file" and the database file for "sqlite".
	Path string
	DSN  string
	// MaxEntries bounds the memory and file backends; zero means unbounded.
	MaxEntries int
	// CacheEntries puts a read-through LRU of this size in front of the
	// file and SQL backends; zero disables it.
	CacheEntries int
	CacheTTL     time.Duration
}

// Open builds the store named by cfg.Backend. An empty backend selects memory.
func Open(cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(cfg.MaxEntries), nil
	case BackendFile:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("kv: file backend requires a path")
		}
		store, err = NewFileStore(FileStoreConfig{Root: cfg.Path, MaxEntries: cfg.MaxEntries})
	case BackendSQLite:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, fmt.Errorf("kv: sqlite backend requires a path")
		}
		if path != ":memory:" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "bizdiag.db")
		}
		store, err = NewSQLiteStore(path)
	case BackendPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("kv: postgres backend requires a dsn")
		}
		store, err = NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheEntries > 0 {
		store = NewCachedStore(store, CacheConfig{MaxEntries: cfg.CacheEntries, TTL: cfg.CacheTTL})
	}
	return store, nil
}
