package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound wird geliefert, wenn unter dem Schlüssel nichts liegt.
var ErrObjectNotFound = errors.New("object not found")

// ImageStore speichert hochgeladene Artikelbilder unter einem Schlüssel wie "articles/<name>.png".
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// LocalImageStore legt Bilder in einem Verzeichnis auf der Platte ab.
type LocalImageStore struct {
	root string
}

var _ ImageStore = (*LocalImageStore)(nil)

// NewLocalImageStore erstellt eine Ablage unter root.
func NewLocalImageStore(root string) *LocalImageStore {
	return &LocalImageStore{root: root}
}

// Put schreibt die Datei; fehlende Verzeichnisse werden angelegt.
func (l *LocalImageStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare image dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write image %s: %w", key, err)
	}
	return nil
}

// Get liest die Datei.
func (l *LocalImageStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	return data, nil
}

// resolve verhindert, dass ein Schlüssel aus root herausführt.
func (l *LocalImageStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	path := filepath.Join(l.root, clean)
	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return path, nil
}
