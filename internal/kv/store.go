// Package kv is the string-addressed durable storage boundary shared by the
// response cache, the case repository, the search history and the to-do list.
package kv

import (
	"context"
	"errors"
	"strings"
)

// Store is a string-keyed byte store. Get reports a missing key as ok=false
// with a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

var ErrKeyRequired = errors.New("kv: key is required")

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrKeyRequired
	}
	return key, nil
}
