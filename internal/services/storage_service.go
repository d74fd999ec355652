package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/storage"
	"go.uber.org/zap"
)

// sniffLen is the number of bytes http.DetectContentType looks at
const sniffLen = 512

// allowedPhotoTypes are the content types accepted for report photos
var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// storageService implements StorageService
type storageService struct {
	storage     storage.Storage
	metrics     metrics.MetricsCollector
	logger      *zap.Logger
	photoBucket string
	maxSize     int64
	publicBase  string
}

// NewStorageService creates a new storage service.
// publicBase is the externally reachable API origin used to build public URLs.
func NewStorageService(
	store storage.Storage,
	metrics metrics.MetricsCollector,
	logger *zap.Logger,
	photoBucket string,
	maxSize int64,
	publicBase string,
) *storageService {
	return &storageService{
		storage:     store,
		metrics:     metrics,
		logger:      logger,
		photoBucket: photoBucket,
		maxSize:     maxSize,
		publicBase:  strings.TrimSuffix(publicBase, "/"),
	}
}

// PublicURL returns the public URL of an object
func (s *storageService) PublicURL(bucket, path string) string {
	return storage.PublicURL(s.publicBase, bucket, path)
}

// PublicBucketURL returns the URL prefix of every public object in a bucket
func (s *storageService) PublicBucketURL(bucket string) string {
	return s.publicBase + storage.PublicPathPrefix + url.PathEscape(bucket)
}

// Upload stores a photo under the caller's folder and returns its public URL.
// The object path must start with "<user id>/".
func (s *storageService) Upload(ctx context.Context, claims *service.Claims, bucket, path string, r io.Reader, size int64) (string, error) {
	if claims == nil {
		return "", apperrors.New(apperrors.KindAuthRequired, "sign in to upload photos")
	}
	if bucket != s.photoBucket {
		return "", apperrors.New(apperrors.KindNotFound, "bucket not found")
	}
	if err := storage.ValidateObjectPath(path); err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, "invalid object path", err)
	}
	if !strings.HasPrefix(path, strconv.Itoa(claims.UserID)+"/") {
		return "", apperrors.New(apperrors.KindForbidden, "photos must be uploaded to your own folder")
	}
	if size <= 0 {
		return "", apperrors.New(apperrors.KindValidation, "file is empty")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return "", apperrors.New(apperrors.KindValidation, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		s.metrics.RecordUpload(false)
		return "", apperrors.Wrap(apperrors.KindUpload, "failed to read photo", err)
	}
	contentType := http.DetectContentType(head)
	if !allowedPhotoTypes[contentType] {
		return "", apperrors.New(apperrors.KindValidation, "only JPEG, PNG, GIF and WebP photos are accepted")
	}

	if err := s.storage.Put(ctx, bucket, path, br, size, contentType); err != nil {
		s.metrics.RecordUpload(false)
		s.logger.Error("failed to store photo",
			zap.String("bucket", bucket),
			zap.String("path", path),
			zap.Error(err),
		)
		return "", apperrors.Wrap(apperrors.KindUpload, "failed to upload photo", err)
	}

	s.metrics.RecordUpload(true)
	return s.PublicURL(bucket, path), nil
}

// Open returns a public object. Only the photo bucket is public.
func (s *storageService) Open(ctx context.Context, bucket, path string) (*storage.Object, error) {
	if bucket != s.photoBucket {
		return nil, apperrors.New(apperrors.KindNotFound, "object not found")
	}
	if err := storage.ValidateObjectPath(path); err != nil {
		return nil, apperrors.New(apperrors.KindNotFound, "object not found")
	}

	obj, err := s.storage.Get(ctx, bucket, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "object not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindRead, "failed to read object", err)
	}
	return obj, nil
}
