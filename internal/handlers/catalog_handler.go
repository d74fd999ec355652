package handlers

import (
	"context"
	"net/http"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogService is the interface that wraps methods for the read-only road catalog.
type CatalogService interface {
	// Method ListRoads retrieves roads matching the query.
	//
	// If the query names an unknown column, a ValidationFailed error will be returned.
	// Any other failure is returned as ReadFailed together with "nil" value.
	ListRoads(ctx context.Context, q models.Query) ([]models.Road, error)
	// Method ListSegments retrieves road segments matching the query.
	//
	// Please reference ListRoads method for more information about error values.
	ListSegments(ctx context.Context, q models.Query) ([]models.RoadSegment, error)
}

// CatalogHandler handles HTTP requests for roads and road segments
type CatalogHandler struct {
	BaseHandler
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all catalog handler routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/roads", h.ListRoads)
	r.Get("/road_segments", h.ListSegments)
}

// ListRoads handles GET /roads
// @Summary List roads
// @Description List roads; supports order=<column>.<asc|desc>, <column>=eq.<value> and limit
// @Tags catalog
// @Produce json
// @Param order query string false "Order, e.g. sort_order.asc"
// @Param limit query int false "Maximum rows (capped at 500)"
// @Success 200 {array} models.Road
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /roads [get]
func (h *CatalogHandler) ListRoads(w http.ResponseWriter, r *http.Request) {
	q, err := models.ParseQuery(r.URL.Query(), models.RoadColumns)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, err.Error())
		return
	}

	roads, err := h.service.ListRoads(r.Context(), q)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to load roads")
		return
	}

	h.RespondJSON(w, http.StatusOK, roads)
}

// ListSegments handles GET /road_segments
// @Summary List road segments
// @Description List road segments, usually filtered by road_id=eq.<id> and ordered by sequence
// @Tags catalog
// @Produce json
// @Param road_id query string false "Road filter, e.g. eq.3"
// @Param order query string false "Order, e.g. sequence.asc"
// @Param limit query int false "Maximum rows (capped at 500)"
// @Success 200 {array} models.RoadSegment
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /road_segments [get]
func (h *CatalogHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	q, err := models.ParseQuery(r.URL.Query(), models.RoadSegmentColumns)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, err.Error())
		return
	}

	segments, err := h.service.ListSegments(r.Context(), q)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to load road segments")
		return
	}

	h.RespondJSON(w, http.StatusOK, segments)
}
