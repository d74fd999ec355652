package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

const roadReportSelect = `SELECT id, road_id, road_name, user_id, nearest_town, blocked_duration, subdivision, cause, photo_url, status, created_at FROM road_reports`

type roadReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoadReportRepository creates a new road report repository
func NewRoadReportRepository(db *sql.DB, logger *zap.Logger) *roadReportRepository {
	return &roadReportRepository{
		db:     db,
		logger: logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (*models.RoadReport, error) {
	report := &models.RoadReport{}
	var photoURL sql.NullString
	if err := s.Scan(
		&report.ID,
		&report.RoadID,
		&report.RoadName,
		&report.UserID,
		&report.NearestTown,
		&report.BlockedDuration,
		&report.Subdivision,
		&report.Cause,
		&photoURL,
		&report.Status,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	if photoURL.Valid {
		report.PhotoURL = &photoURL.String
	}
	return report, nil
}

// Method List is a RoadReportRepository implementation for retrieving reports matching a query.
// Reports come back newest first unless the query orders them otherwise.
func (r *roadReportRepository) List(ctx context.Context, q models.Query) ([]models.RoadReport, error) {
	query, args, err := buildSelect(roadReportSelect, q, models.RoadReportColumns, "created_at DESC")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query road reports", zap.Error(err))
		return nil, fmt.Errorf("failed to query road reports: %w", err)
	}
	defer rows.Close()

	reports := []models.RoadReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			r.logger.Error("failed to scan road report", zap.Error(err))
			return nil, fmt.Errorf("failed to scan road report: %w", err)
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reports, nil
}

// Method GetByID is a RoadReportRepository implementation for retrieving one report.
// ErrNotFound is returned when the report does not exist.
func (r *roadReportRepository) GetByID(ctx context.Context, id int) (*models.RoadReport, error) {
	report, err := scanReport(r.db.QueryRowContext(ctx, roadReportSelect+` WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get road report by id", zap.Error(err), zap.Int("report_id", id))
		return nil, fmt.Errorf("failed to get road report by id: %w", err)
	}
	return report, nil
}

// Method Create is a RoadReportRepository implementation for inserting a report.
// The generated id is written back to report.
func (r *roadReportRepository) Create(ctx context.Context, report *models.RoadReport) error {
	query := `
		INSERT INTO road_reports (road_id, road_name, user_id, nearest_town, blocked_duration, subdivision, cause, photo_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var photoURL sql.NullString
	if report.PhotoURL != nil {
		photoURL = sql.NullString{String: *report.PhotoURL, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		report.RoadID,
		report.RoadName,
		report.UserID,
		report.NearestTown,
		report.BlockedDuration,
		report.Subdivision,
		string(report.Cause),
		photoURL,
		string(report.Status),
		report.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create road report", zap.Error(err))
		return fmt.Errorf("failed to create road report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	report.ID = int(id)
	return nil
}

// Method UpdateStatus is a RoadReportRepository implementation for changing the moderation status of a report.
// MySQL reports zero affected rows when the status is unchanged, so existence is checked by the caller.
func (r *roadReportRepository) UpdateStatus(ctx context.Context, id int, status models.ReportStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE road_reports SET status = ? WHERE id = ?`, string(status), id); err != nil {
		r.logger.Error("failed to update road report status", zap.Error(err), zap.Int("report_id", id))
		return fmt.Errorf("failed to update road report status: %w", err)
	}
	return nil
}
