package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sink stores an artifact under scope (a session or case id) and returns
// where it can be fetched from.
type Sink interface {
	Put(ctx context.Context, scope string, a Artifact) (string, error)
}

func objectKey(scope, name string) (string, error) {
	scope = strings.Trim(strings.TrimSpace(scope), "/")
	name = strings.TrimSpace(name)
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("export: invalid artifact name %q", name)
	}
	if scope == "" {
		return name, nil
	}
	for _, part := range strings.Split(scope, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("export: invalid scope %q", scope)
		}
	}
	return scope + "/" + name, nil
}

// DiskSink writes artifacts below Dir. Writes cannot escape Dir.
type DiskSink struct {
	Dir string
}

func (s DiskSink) Put(_ context.Context, scope string, a Artifact) (string, error) {
	key, err := objectKey(scope, a.Name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	root, err := os.OpenRoot(s.Dir)
	if err != nil {
		return "", fmt.Errorf("open export dir: %w", err)
	}
	defer root.Close()

	if d := path.Dir(key); d != "." {
		if err := mkdirAllIn(root, d); err != nil {
			return "", err
		}
	}
	f, err := root.Create(key)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := f.Write(a.Body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, filepath.FromSlash(key)), nil
}

func mkdirAllIn(root *os.Root, dir string) error {
	cur := ""
	for _, part := range strings.Split(dir, "/") {
		cur = path.Join(cur, part)
		if err := root.Mkdir(cur, 0o755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("create %s: %w", cur, err)
		}
	}
	return nil
}
