package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalObjectRepository reads and writes objects on the local filesystem.
type LocalObjectRepository struct {
	dir string
}

func (r *LocalObjectRepository) path(key string) string {
	if r.dir == "" {
		return key
	}
	return filepath.Join(r.dir, key)
}

// Upload writes the object, creating parent directories as needed.
func (r *LocalObjectRepository) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	p := r.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}

// Download opens the object for reading.
func (r *LocalObjectRepository) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return os.Open(r.path(key))
}

// GetBucketName returns the root directory.
func (r *LocalObjectRepository) GetBucketName() string {
	return r.dir
}

// GetStorageType returns the storage type
func (r *LocalObjectRepository) GetStorageType() string {
	return string(FileType)
}
