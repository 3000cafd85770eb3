package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// FS stores photos as files below a base directory.
// Thread-safe for concurrent operations.
type FS struct {
	basePath string
	mu       sync.RWMutex
}

// NewFS creates the filesystem backend, creating basePath if needed.
func NewFS(basePath string) (*FS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &FS{basePath: basePath}, nil
}

// Driver implements Backend.
func (*FS) Driver() Driver { return DriverFS }

// Put implements Backend.
func (s *FS) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.Path(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}
	return ServePrefix + key, nil
}

// Get implements Backend. The content type is sniffed from the file.
func (s *FS) Get(_ context.Context, key string) ([]byte, string, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to read photo file: %w", err)
	}
	return data, mimetype.Detect(data).String(), nil
}

// Delete implements Backend. Deleting a missing photo is not an error.
func (s *FS) Delete(_ context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete photo file: %w", err)
	}
	return nil
}

// Path returns the file path of key, refusing keys that escape the base
// directory.
func (s *FS) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid photo key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}
