package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/h44z/vote-portal/internal/domain"
)

// FilesystemRepo stores every key as <key>.json file inside the base directory.
type FilesystemRepo struct {
	basePath string
}

// NewFileSystemRepository creates a new FilesystemRepo instance.
func NewFileSystemRepository(basePath string) (*FilesystemRepo, error) {
	if basePath == "" {
		return nil, errors.New("missing base path")
	}

	r := &FilesystemRepo{basePath: basePath}

	if err := os.MkdirAll(r.basePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}

	return r, nil
}

func (r *FilesystemRepo) keyPath(key string) string {
	return filepath.Join(r.basePath, filepath.Base(key)+".json")
}

// WriteFile writes the given contents to the given path.
// The path is relative to the base path of the repository.
// If the parent directory does not exist, it is created.
// If the file already exists, it is overwritten.
func (r *FilesystemRepo) WriteFile(path string, contents io.Reader) error {
	filePath := filepath.Join(r.basePath, path)
	parentDirectory := filepath.Dir(filePath)

	if err := os.MkdirAll(parentDirectory, 0o700); err != nil {
		return fmt.Errorf("failed to create parent directory %s: %w", parentDirectory, err)
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "file", file.Name(), "error", err)
		}
	}(file)

	_, err = io.Copy(file, contents)
	if err != nil {
		return fmt.Errorf("failed to write file contents: %w", err)
	}

	return nil
}

// Load returns the content stored under key. If there is none, domain.ErrNotFound is returned.
func (r *FilesystemRepo) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(r.keyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return data, nil
}

func (r *FilesystemRepo) Store(_ context.Context, key string, value []byte) error {
	return r.WriteFile(filepath.Base(key)+".json", bytes.NewReader(value))
}

// Remove deletes the file of key. Removing a missing key is not an error.
func (r *FilesystemRepo) Remove(_ context.Context, key string) error {
	err := os.Remove(r.keyPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	return nil
}
