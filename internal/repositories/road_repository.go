package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

const roadSelect = `SELECT id, name, acronym, status, distance_km, sort_order, updated_at FROM roads`

type roadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoadRepository creates a new road repository
func NewRoadRepository(db *sql.DB, logger *zap.Logger) *roadRepository {
	return &roadRepository{
		db:     db,
		logger: logger,
	}
}

// Method List is a RoadRepository implementation for retrieving roads matching a query.
// Roads come back by sort_order unless the query orders them otherwise.
func (r *roadRepository) List(ctx context.Context, q models.Query) ([]models.Road, error) {
	query, args, err := buildSelect(roadSelect, q, models.RoadColumns, "sort_order ASC")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query roads", zap.Error(err))
		return nil, fmt.Errorf("failed to query roads: %w", err)
	}
	defer rows.Close()

	roads := []models.Road{}
	for rows.Next() {
		var road models.Road
		if err := rows.Scan(&road.ID, &road.Name, &road.Acronym, &road.Status, &road.DistanceKm, &road.SortOrder, &road.UpdatedAt); err != nil {
			r.logger.Error("failed to scan road", zap.Error(err))
			return nil, fmt.Errorf("failed to scan road: %w", err)
		}
		roads = append(roads, road)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return roads, nil
}

// Method GetByID is a RoadRepository implementation for retrieving one road.
// ErrNotFound is returned when the road does not exist.
func (r *roadRepository) GetByID(ctx context.Context, id int) (*models.Road, error) {
	road := &models.Road{}
	err := r.db.QueryRowContext(ctx, roadSelect+` WHERE id = ? LIMIT 1`, id).
		Scan(&road.ID, &road.Name, &road.Acronym, &road.Status, &road.DistanceKm, &road.SortOrder, &road.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get road by id", zap.Error(err), zap.Int("road_id", id))
		return nil, fmt.Errorf("failed to get road by id: %w", err)
	}
	return road, nil
}
