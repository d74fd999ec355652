package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

const roadSegmentSelect = `SELECT id, road_id, title, status, status_note, distance_km, travel_time, sequence FROM road_segments`

type roadSegmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoadSegmentRepository creates a new road segment repository
func NewRoadSegmentRepository(db *sql.DB, logger *zap.Logger) *roadSegmentRepository {
	return &roadSegmentRepository{
		db:     db,
		logger: logger,
	}
}

// Method List is a RoadSegmentRepository implementation for retrieving segments matching a query.
// Segments come back by road and ascending sequence unless the query orders them otherwise.
func (r *roadSegmentRepository) List(ctx context.Context, q models.Query) ([]models.RoadSegment, error) {
	query, args, err := buildSelect(roadSegmentSelect, q, models.RoadSegmentColumns, "sequence ASC")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query road segments", zap.Error(err))
		return nil, fmt.Errorf("failed to query road segments: %w", err)
	}
	defer rows.Close()

	segments := []models.RoadSegment{}
	for rows.Next() {
		var s models.RoadSegment
		if err := rows.Scan(&s.ID, &s.RoadID, &s.Title, &s.Status, &s.StatusNote, &s.DistanceKm, &s.TravelTime, &s.Sequence); err != nil {
			r.logger.Error("failed to scan road segment", zap.Error(err))
			return nil, fmt.Errorf("failed to scan road segment: %w", err)
		}
		segments = append(segments, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return segments, nil
}

// Method CountByRoad is a RoadSegmentRepository implementation for counting the segments of a road.
func (r *roadSegmentRepository) CountByRoad(ctx context.Context, roadID int) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM road_segments WHERE road_id = ?`, roadID).Scan(&count); err != nil {
		r.logger.Error("failed to count road segments", zap.Error(err), zap.Int("road_id", roadID))
		return 0, fmt.Errorf("failed to count road segments: %w", err)
	}
	return count, nil
}
