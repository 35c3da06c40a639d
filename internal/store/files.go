package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskFileStore writes uploads under a local directory and serves them back
// by URL path. A deployment pointing at object storage implements FileStore
// against its SDK instead.
type DiskFileStore struct {
	Dir     string
	BaseURL string
}

func NewDiskFileStore(dir, baseURL string) (*DiskFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskFileStore{Dir: dir, BaseURL: baseURL}, nil
}

func (s *DiskFileStore) Save(_ context.Context, name string, data []byte) (string, error) {
	// Client-supplied names are untrusted; keep only the extension.
	stored := uuid.NewString() + filepath.Ext(filepath.Base(name))
	if err := os.WriteFile(filepath.Join(s.Dir, stored), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.BaseURL + "/" + stored, nil
}
