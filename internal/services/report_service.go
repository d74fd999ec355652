package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/security"
	"go.uber.org/zap"
)

// RoadReportRepository is the interface that wraps methods for RoadReport table data access
type RoadReportRepository interface {
	// Method List retrieves reports matching the query, newest first unless ordered otherwise.
	List(ctx context.Context, q models.Query) ([]models.RoadReport, error)
	// Method GetByID retrieves one report.
	//
	// If the report does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.RoadReport, error)
	// Method Create inserts a report and sets its ID.
	Create(ctx context.Context, report *models.RoadReport) error
	// Method UpdateStatus changes the moderation status of a report.
	UpdateStatus(ctx context.Context, id int, status models.ReportStatus) error
}

// reportService implements ReportService
type reportService struct {
	reportRepo     RoadReportRepository
	roadRepo       RoadRepository
	segmentRepo    RoadSegmentRepository
	sanitizer      security.TextSanitizer
	metrics        metrics.MetricsCollector
	logger         *zap.Logger
	photoURLPrefix string
	now            func() time.Time
}

// NewReportService creates a new report service.
// photoURLPrefix is the public URL of the photo bucket; a report's photo must live under
// "<photoURLPrefix>/<submitter id>/".
func NewReportService(
	reportRepo RoadReportRepository,
	roadRepo RoadRepository,
	segmentRepo RoadSegmentRepository,
	sanitizer security.TextSanitizer,
	metrics metrics.MetricsCollector,
	logger *zap.Logger,
	photoURLPrefix string,
) *reportService {
	return &reportService{
		reportRepo:     reportRepo,
		roadRepo:       roadRepo,
		segmentRepo:    segmentRepo,
		sanitizer:      sanitizer,
		metrics:        metrics,
		logger:         logger,
		photoURLPrefix: strings.TrimSuffix(photoURLPrefix, "/"),
		now:            time.Now,
	}
}

// List returns the reports visible to the caller.
// Non-admin callers are always scoped to their own reports, whatever the query asks for.
func (s *reportService) List(ctx context.Context, claims *service.Claims, q models.Query) ([]models.RoadReport, error) {
	if claims == nil {
		return nil, apperrors.New(apperrors.KindAuthRequired, "sign in to view reports")
	}
	if !claims.IsAdmin {
		q = q.WithoutFilter("user_id")
		q.Filters = append(q.Filters, models.Filter{Column: "user_id", Value: strconv.Itoa(claims.UserID)})
	}

	reports, err := s.reportRepo.List(ctx, q)
	if err != nil {
		return nil, asReadError(err, "failed to load reports")
	}
	return reports, nil
}

// Create stores a new pending report submitted by the caller.
// The road name is copied from the road at submission time.
func (s *reportService) Create(ctx context.Context, claims *service.Claims, req *models.NewReportRequest) (*models.RoadReport, error) {
	if claims == nil {
		return nil, apperrors.New(apperrors.KindAuthRequired, "sign in to submit a report")
	}

	req.NearestTown = s.sanitizer.Sanitize(req.NearestTown)
	req.BlockedDuration = s.sanitizer.Sanitize(req.BlockedDuration)
	req.Subdivision = s.sanitizer.Sanitize(req.Subdivision)
	req.RoadName = strings.TrimSpace(req.RoadName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	cause, err := models.ParseCause(req.Cause)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "cause must be one of the listed causes", err)
	}

	road, err := s.roadRepo.GetByID(ctx, req.RoadID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindValidation, "road does not exist")
	}
	if err != nil {
		return nil, asReadError(err, "failed to load road")
	}

	if err := s.checkSubdivision(ctx, road.ID, req.Subdivision); err != nil {
		return nil, err
	}

	if req.PhotoURL != nil {
		if err := s.checkPhotoURL(*req.PhotoURL, claims.UserID); err != nil {
			return nil, err
		}
	}

	report := &models.RoadReport{
		RoadID:          road.ID,
		RoadName:        road.Name,
		UserID:          claims.UserID,
		NearestTown:     req.NearestTown,
		BlockedDuration: req.BlockedDuration,
		Subdivision:     req.Subdivision,
		Cause:           cause,
		PhotoURL:        req.PhotoURL,
		Status:          models.ReportStatusPending,
		CreatedAt:       s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, asWriteError(err, "failed to submit report")
	}

	s.metrics.RecordReportSubmitted()
	s.logger.Info("road report submitted",
		zap.Int("report_id", report.ID),
		zap.Int("road_id", report.RoadID),
		zap.Int("user_id", report.UserID),
	)
	return report, nil
}

// UpdateStatus moves a report to verified or incorrect; only admins may do so
func (s *reportService) UpdateStatus(ctx context.Context, claims *service.Claims, id int, req *models.UpdateReportRequest) (*models.RoadReport, error) {
	if claims == nil {
		return nil, apperrors.New(apperrors.KindAuthRequired, "sign in to moderate reports")
	}
	if !claims.IsAdmin {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can change report status")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	report, err := s.reportRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "report not found")
	}
	if err != nil {
		return nil, asReadError(err, "failed to load report")
	}

	if err := s.reportRepo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, asWriteError(err, "failed to update report status")
	}

	s.metrics.RecordModeration(string(req.Status))
	s.logger.Info("road report moderated",
		zap.Int("report_id", id),
		zap.String("from", string(report.Status)),
		zap.String("to", string(req.Status)),
		zap.Int("admin_id", claims.UserID),
	)
	report.Status = req.Status
	return report, nil
}

// checkSubdivision requires a segment title when the road has segments
func (s *reportService) checkSubdivision(ctx context.Context, roadID int, subdivision string) error {
	segments, err := s.segmentRepo.List(ctx, models.Query{
		Filters: []models.Filter{{Column: "road_id", Value: strconv.Itoa(roadID)}},
	})
	if err != nil {
		return asReadError(err, "failed to load road segments")
	}
	if len(segments) == 0 {
		return nil
	}
	if subdivision == "" {
		return apperrors.New(apperrors.KindValidation, "subdivision is required for this road")
	}
	for _, segment := range segments {
		if segment.Title == subdivision {
			return nil
		}
	}
	return apperrors.New(apperrors.KindValidation, fmt.Sprintf("subdivision %q is not part of this road", subdivision))
}

// checkPhotoURL only accepts photos the submitter uploaded to the photo bucket
func (s *reportService) checkPhotoURL(photoURL string, userID int) error {
	prefix := fmt.Sprintf("%s/%d/", s.photoURLPrefix, userID)
	if !strings.HasPrefix(photoURL, prefix) || len(photoURL) == len(prefix) {
		return apperrors.New(apperrors.KindValidation, "photo_url must point to a photo you uploaded")
	}
	return nil
}
