package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// KeyPrefix marks response cache entries in the shared key-value store.
const KeyPrefix = "gemini-cache-"

// Key returns the canonical cache key for (operation, input). Object keys are
// sorted at every depth, so inputs that differ only in key order collide.
func Key(operation string, input any) (string, error) {
	canon, err := Canonical(input)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s input: %w", operation, err)
	}
	return KeyPrefix + operation + "-" + string(canon), nil
}

// fallbackKey is unique per call and therefore never hit by a later lookup.
func fallbackKey(operation string, now time.Time) string {
	return KeyPrefix + operation + "-" + strconv.FormatInt(now.UnixNano(), 10)
}

// Canonical encodes v as JSON with sorted object keys and no HTML escaping.
// Struct inputs go through their JSON form first, so struct field order does
// not leak into the key either.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
