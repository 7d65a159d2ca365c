package io

import (
	"context"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/kgimport/pkg/loader"
)

// IOTextLoader reads documents from the local filesystem. Paths are
// resolved against an optional root directory. Results are cached.
type IOTextLoader struct {
	root  string
	cache loader.Cache
}

// NewIOTextLoader creates a filesystem loader. An empty root keeps paths
// as given.
func NewIOTextLoader(root string) *IOTextLoader {
	return &IOTextLoader{root: root}
}

// LoadText reads the file at path.
func (l *IOTextLoader) LoadText(ctx context.Context, path string) (string, error) {
	full := path
	if l.root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.root, path)
	}
	b, err := l.cache.Get(full, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(full)
	})
	if err != nil {
		return "", err
	}
	return loader.Text(b), nil
}
