package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/middleware"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportService is the interface that wraps methods for road report business logic.
type ReportService interface {
	// Method List retrieves the reports visible to the caller.
	//
	// Non-admin callers only ever see their own reports.
	List(ctx context.Context, claims *service.Claims, q models.Query) ([]models.RoadReport, error)
	// Method Create stores a pending report submitted by the caller.
	//
	// If the request is invalid, a ValidationFailed error will be returned together with "nil" value.
	Create(ctx context.Context, claims *service.Claims, req *models.NewReportRequest) (*models.RoadReport, error)
	// Method UpdateStatus moves a report to verified or incorrect.
	//
	// Non-admin callers get a Forbidden error.
	UpdateStatus(ctx context.Context, claims *service.Claims, id int, req *models.UpdateReportRequest) (*models.RoadReport, error)
}

// ExportService is the interface that wraps the moderation export.
type ExportService interface {
	// Method ExportPDF renders the reports matching the query as a PDF document. Admin only.
	ExportPDF(ctx context.Context, claims *service.Claims, q models.Query) ([]byte, error)
}

// ReportHandler handles HTTP requests for road reports
type ReportHandler struct {
	BaseHandler
	service ReportService
	export  ExportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc ReportService, export ExportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		export:      export,
	}
}

// RegisterRoutes registers all report handler routes
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/road_reports", h.List)
		r.Post("/road_reports", h.Create)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminMiddleware)
			r.Get("/road_reports/export.pdf", h.ExportPDF)
			r.Patch("/road_reports/{id}", h.UpdateStatus)
		})
	})
}

// List handles GET /road_reports
// @Summary List reports
// @Description List reports; non-admins are always limited to their own reports
// @Tags reports
// @Produce json
// @Param user_id query string false "User filter, e.g. eq.7 (admins only)"
// @Param order query string false "Order, e.g. created_at.desc"
// @Param limit query int false "Maximum rows (capped at 500)"
// @Success 200 {array} models.RoadReport
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /road_reports [get]
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	q, err := models.ParseQuery(r.URL.Query(), models.RoadReportColumns)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, err.Error())
		return
	}

	reports, err := h.service.List(r.Context(), claims, q)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to load reports")
		return
	}

	h.RespondJSON(w, http.StatusOK, reports)
}

// Create handles POST /road_reports
// @Summary Submit a report
// @Description Submit a pending report; the submitter is taken from the access token
// @Tags reports
// @Accept json
// @Produce json
// @Param request body models.NewReportRequest true "Report"
// @Success 201 {object} models.RoadReport
// @Failure 400 {object} ErrorResponse "Invalid report"
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Failure 500 {object} ErrorResponse "Failed to store report"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /road_reports [post]
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	var req models.NewReportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	report, err := h.service.Create(r.Context(), claims, &req)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to submit report")
		return
	}

	h.RespondJSON(w, http.StatusCreated, report)
}

// UpdateStatus handles PATCH /road_reports/{id}
// @Summary Moderate a report
// @Description Mark a report verified or incorrect (admin only)
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body models.UpdateReportRequest true "New status"
// @Success 200 {object} models.RoadReport
// @Failure 400 {object} ErrorResponse "Invalid status"
// @Failure 403 {object} ErrorResponse "Admin access required"
// @Failure 404 {object} ErrorResponse "Report not found"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /road_reports/{id} [patch]
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "invalid id parameter")
		return
	}

	var req models.UpdateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	report, err := h.service.UpdateStatus(r.Context(), claims, id, &req)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to update report")
		return
	}

	h.RespondJSON(w, http.StatusOK, report)
}

// ExportPDF handles GET /road_reports/export.pdf
// @Summary Export reports
// @Description Download the reports matching the query as a PDF (admin only)
// @Tags reports
// @Produce application/pdf
// @Param status query string false "Status filter, e.g. eq.pending"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse "Admin access required"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /road_reports/export.pdf [get]
func (h *ReportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	q, err := models.ParseQuery(r.URL.Query(), models.RoadReportColumns)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, err.Error())
		return
	}

	data, err := h.export.ExportPDF(r.Context(), claims, q)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to export reports")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="road-reports.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Warn("failed to write pdf", zap.Error(err))
	}
}
