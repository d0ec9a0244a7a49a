// Package fsblob stores blobs on the local filesystem, one directory per
// container, and hands out public URLs served by the HTTP adapter. It stands
// in for the external object store the service treats as a collaborator.
package fsblob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
)

type Store struct {
	root    string
	baseURL string
}

// NewStore creates the container directories under dataDir/blobs. baseURL is
// the public address prefix, e.g. "http://localhost:7891".
func NewStore(dataDir, baseURL string) (*Store, error) {
	root := filepath.Join(dataDir, "blobs")
	for _, container := range []string{port.ContainerOriginals, port.ContainerProcessed} {
		if err := os.MkdirAll(filepath.Join(root, container), 0755); err != nil {
			return nil, fmt.Errorf("create blob container %s: %w", container, err)
		}
	}
	return &Store{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *Store) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(container, key)
	if err != nil {
		return "", err
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store blob: %w", err)
	}

	return s.URL(container, key), nil
}

func (s *Store) Get(ctx context.Context, container, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(container, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, container, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(container, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *Store) URL(container, key string) string {
	return fmt.Sprintf("%s/files/%s/%s", s.baseURL, container, url.PathEscape(key))
}

// path rejects keys that would escape the container directory.
func (s *Store) path(container, key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key: %q", key)
	}
	switch container {
	case port.ContainerOriginals, port.ContainerProcessed:
	default:
		return "", fmt.Errorf("unknown blob container: %q", container)
	}
	return filepath.Join(s.root, container, key), nil
}

var _ port.BlobStore = (*Store)(nil)
