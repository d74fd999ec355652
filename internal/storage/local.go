package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// localStorage implements Storage using the local filesystem
// Objects live at <basePath>/<bucket>/<path>
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// generatePath generates the full file path of an object
func (s *localStorage) generatePath(bucket, path string) (string, error) {
	if err := ValidateObjectPath(bucket); err != nil {
		return "", fmt.Errorf("invalid bucket: %w", err)
	}
	if err := ValidateObjectPath(path); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(path)), nil
}

// Put writes the object to a temporary file and renames it into place
func (s *localStorage) Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error {
	fullPath, err := s.generatePath(bucket, path)
	if err != nil {
		return err
	}

	// Ensure the directory exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	counter := NewSizeWriter()
	if _, err := io.Copy(io.MultiWriter(tmp, counter), &contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if size >= 0 && counter.Size() != size {
		return fmt.Errorf("short upload: expected %d bytes, got %d", size, counter.Size())
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Get opens an object for reading
func (s *localStorage) Get(ctx context.Context, bucket, path string) (*Object, error) {
	fullPath, err := s.generatePath(bucket, path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &Object{ReadCloser: f, ContentType: ContentTypeFor(path), Size: info.Size()}, nil
}

// Delete removes an object
func (s *localStorage) Delete(ctx context.Context, bucket, path string) error {
	fullPath, err := s.generatePath(bucket, path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
