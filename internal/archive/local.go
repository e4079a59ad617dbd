// Package archive stores raw run artifacts (downloaded PDFs, rendered
// page images) in a blob store.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes artifacts under a base directory on local disk.
type LocalStore struct {
	baseDir string
}

// NewLocal builds a LocalStore rooted at baseDir, creating it when
// missing.
func NewLocal(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// PutObject writes data at path below the base directory and returns
// the absolute location.
func (s *LocalStore) PutObject(_ context.Context, path, _ string, data []byte) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create archive subdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return full, nil
}
