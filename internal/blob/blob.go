// Package blob stores attachment bytes behind a small interface so the
// relay engine does not care whether files land on local disk or in Redis.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes and reads attachment blobs. Write returns the public
// location ("/uploads/<name>") the stored blob is served from.
type Store interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// DiskStore keeps blobs as plain files under a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Write(_ context.Context, name string, data []byte) (string, error) {
	if !safeName(name) {
		return "", fmt.Errorf("unsafe blob name %q", name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

func (s *DiskStore) Read(_ context.Context, name string) ([]byte, error) {
	if !safeName(name) {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

// safeName rejects anything that could escape the uploads directory.
// Stored names are already sanitized on ingest; this guards the read path,
// which sees raw URL input.
func safeName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\") && filepath.Base(name) == name
}
