package services

import (
	"context"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

// RoadRepository is the interface that wraps methods for Road table data access
type RoadRepository interface {
	// Method List retrieves roads matching the query, by sort_order unless ordered otherwise.
	//
	// Columns outside models.RoadColumns are rejected with a ValidationFailed error.
	List(ctx context.Context, q models.Query) ([]models.Road, error)
	// Method GetByID retrieves one road.
	//
	// If the road does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Road, error)
}

// RoadSegmentRepository is the interface that wraps methods for RoadSegment table data access
type RoadSegmentRepository interface {
	// Method List retrieves segments matching the query, by ascending sequence unless ordered otherwise.
	List(ctx context.Context, q models.Query) ([]models.RoadSegment, error)
	// Method CountByRoad counts the segments of a road.
	CountByRoad(ctx context.Context, roadID int) (int, error)
}

// catalogService implements CatalogService
type catalogService struct {
	roadRepo    RoadRepository
	segmentRepo RoadSegmentRepository
	logger      *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(roadRepo RoadRepository, segmentRepo RoadSegmentRepository, logger *zap.Logger) *catalogService {
	return &catalogService{
		roadRepo:    roadRepo,
		segmentRepo: segmentRepo,
		logger:      logger,
	}
}

// ListRoads returns the roads matching the query
func (s *catalogService) ListRoads(ctx context.Context, q models.Query) ([]models.Road, error) {
	roads, err := s.roadRepo.List(ctx, q)
	if err != nil {
		return nil, asReadError(err, "failed to load roads")
	}
	return roads, nil
}

// ListSegments returns the road segments matching the query
func (s *catalogService) ListSegments(ctx context.Context, q models.Query) ([]models.RoadSegment, error) {
	segments, err := s.segmentRepo.List(ctx, q)
	if err != nil {
		return nil, asReadError(err, "failed to load road segments")
	}
	return segments, nil
}

// asReadError keeps classified errors and marks everything else as ReadFailed
func asReadError(err error, message string) error {
	if apperrors.KindOf(err) != apperrors.KindInternal {
		return err
	}
	return apperrors.Wrap(apperrors.KindRead, message, err)
}

// asWriteError keeps classified errors and marks everything else as WriteFailed
func asWriteError(err error, message string) error {
	if apperrors.KindOf(err) != apperrors.KindInternal {
		return err
	}
	return apperrors.Wrap(apperrors.KindWrite, message, err)
}
