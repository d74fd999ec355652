package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gbroads/roadstatus/internal/storage"
)

// Storage uploads objects and builds their public URLs
type Storage struct {
	client *Client
}

type uploadResponse struct {
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

// Upload stores r at objectPath in bucket and returns the stored key
func (s *Storage) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(objectPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	var resp uploadResponse
	err = s.client.do(ctx, request{
		method:      http.MethodPost,
		path:        "/storage/" + url.PathEscape(bucket) + "/" + escapePath(objectPath),
		raw:         buf.Bytes(),
		contentType: mw.FormDataContentType(),
		authorized:  true,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Key, nil
}

// PublicURL returns the URL that serves objectPath without credentials
func (s *Storage) PublicURL(bucket, objectPath string) string {
	return storage.PublicURL(s.client.baseURL, bucket, objectPath)
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
