// Package storage keeps uploaded objects (road photos) in buckets
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// Object is a stored file opened for reading; the caller closes it
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// Storage is implemented by the local filesystem and MinIO backends
type Storage interface {
	// Put stores r under bucket/path, replacing any existing object
	// size may be -1 when unknown
	Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error
	// Get opens the object at bucket/path
	Get(ctx context.Context, bucket, path string) (*Object, error)
	// Delete removes the object at bucket/path
	Delete(ctx context.Context, bucket, path string) error
}
