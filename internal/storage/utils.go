package storage

import (
	"errors"
	"mime"
	"net/url"
	"path"
	"strings"
)

// PublicPathPrefix is the API route that serves public objects
const PublicPathPrefix = "/api/v1/storage/public/"

// ErrInvalidPath is returned for object paths that could escape their bucket
var ErrInvalidPath = errors.New("invalid object path")

// ValidateObjectPath rejects empty, absolute and dot-segment paths
func ValidateObjectPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return ErrInvalidPath
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// ContentTypeFor guesses the content type from the file extension
func ContentTypeFor(name string) string {
	if contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name))); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

// sizeWriter tracks the total number of bytes written
type sizeWriter struct {
	size int64
}

// Write implements io.Writer interface
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new sizeWriter instance
func NewSizeWriter() *sizeWriter {
	return &sizeWriter{}
}

// PublicURL builds "<base>/api/v1/storage/public/<bucket>/<path>" with escaped segments
func PublicURL(base, bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimSuffix(base, "/") + PublicPathPrefix + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
