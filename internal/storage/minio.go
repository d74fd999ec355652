package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures the MinIO backend
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// minioStorage implements Storage on a MinIO (S3 compatible) server
type minioStorage struct {
	client *minio.Client
	region string
}

// NewMinIOStorage connects to MinIO; buckets are created on demand by EnsureBucket
func NewMinIOStorage(opts MinIOOptions) (*minioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &minioStorage{client: client, region: opts.Region}, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (m *minioStorage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Put uploads an object with its content type and upload time as metadata
func (m *minioStorage) Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error {
	if err := ValidateObjectPath(path); err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeFor(path)
	}

	_, err := m.client.PutObject(ctx, bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}
	return nil
}

// Get opens an object; a missing key maps to ErrNotFound
func (m *minioStorage) Get(ctx context.Context, bucket, path string) (*Object, error) {
	if err := ValidateObjectPath(path); err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}
	// GetObject is lazy; Stat issues the request
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapMinIOError(err)
	}

	return &Object{ReadCloser: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

// Delete removes an object
func (m *minioStorage) Delete(ctx context.Context, bucket, path string) error {
	if err := ValidateObjectPath(path); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return mapMinIOError(err)
	}
	return nil
}

func mapMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	default:
		return fmt.Errorf("minio request failed: %w", err)
	}
}
