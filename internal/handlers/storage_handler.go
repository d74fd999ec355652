package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/middleware"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StorageService is the interface that wraps methods for photo storage.
type StorageService interface {
	// Method Upload stores a photo at "path" in "bucket" and returns its public URL.
	//
	// The path must start with the caller's user ID. Only images are accepted.
	// If the backend rejects the object, an UploadFailed error will be returned together with "".
	Upload(ctx context.Context, claims *service.Claims, bucket, path string, r io.Reader, size int64) (string, error)
	// Method Open returns a public object. The caller must close it.
	//
	// Unknown objects and non-public buckets return a NotFound error.
	Open(ctx context.Context, bucket, path string) (*storage.Object, error)
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

// StorageHandler handles object storage HTTP requests
type StorageHandler struct {
	BaseHandler
	service StorageService
	maxSize int64
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(svc StorageService, maxSize int64, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		maxSize:     maxSize,
	}
}

// RegisterRoutes registers the upload route
func (h *StorageHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/storage/{bucket}/*", h.Upload)
}

// RegisterPublicRoutes registers the public download route, which needs no API key
func (h *StorageHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/storage/public/{bucket}/*", h.Download)
}

// Upload handles POST /storage/{bucket}/{path}
// @Summary Upload a photo
// @Description Upload a photo under the caller's folder ("<user id>/...")
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path starting with the user ID"
// @Param file formData file true "Photo"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse "Invalid file"
// @Failure 403 {object} ErrorResponse "Path outside the caller's folder"
// @Failure 500 {object} ErrorResponse "Upload failed"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /storage/{bucket}/{path} [post]
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")

	// Leave room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, apperrors.KindValidation, "file is too large")
			return
		}
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "file is required")
		return
	}
	defer file.Close()

	publicURL, err := h.service.Upload(r.Context(), claims, bucket, path, file, fileHeader.Size)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to upload photo")
		return
	}

	h.RespondJSON(w, http.StatusCreated, UploadResponse{Key: bucket + "/" + path, PublicURL: publicURL})
}

// Download handles GET /storage/public/{bucket}/{path}
// @Summary Download a public photo
// @Tags storage
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse "Object not found"
// @Router /storage/public/{bucket}/{path} [get]
func (h *StorageHandler) Download(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")

	obj, err := h.service.Open(r.Context(), bucket, path)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to read object")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.Logger.Warn("failed to stream object", zap.String("bucket", bucket), zap.String("path", path), zap.Error(err))
	}
}
