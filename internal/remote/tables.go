package remote

import (
	"context"
	"net/http"

	"github.com/gbroads/roadstatus/internal/models"
)

// Roads returns every road in display order
func (c *Client) Roads(ctx context.Context) ([]models.Road, error) {
	var roads []models.Road
	if err := c.From(TableRoads).Order("sort_order", true).Select(ctx, &roads); err != nil {
		return nil, err
	}
	return roads, nil
}

// Segments returns the segments of one road in sequence order
func (c *Client) Segments(ctx context.Context, roadID int) ([]models.RoadSegment, error) {
	var segments []models.RoadSegment
	err := c.From(TableRoadSegments).
		Eq("road_id", roadID).
		Order("sequence", true).
		Select(ctx, &segments)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// ListReports reads road_reports with q
func (c *Client) ListReports(ctx context.Context, q models.Query) ([]models.RoadReport, error) {
	var reports []models.RoadReport
	if err := c.From(TableRoadReports).Where(q).Select(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// InsertReport stores a new report for the signed-in user
func (c *Client) InsertReport(ctx context.Context, req *models.NewReportRequest) (*models.RoadReport, error) {
	var report models.RoadReport
	if err := c.From(TableRoadReports).Insert(ctx, req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReportStatus moves a report to a moderation status
func (c *Client) UpdateReportStatus(ctx context.Context, id int, status models.ReportStatus) (*models.RoadReport, error) {
	var report models.RoadReport
	err := c.From(TableRoadReports).
		Eq("id", id).
		Update(ctx, models.UpdateReportRequest{Status: status}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ExportReportsPDF downloads the moderation export of every report
func (c *Client) ExportReportsPDF(ctx context.Context) ([]byte, error) {
	resp, err := c.roundTrip(ctx, request{
		method:     http.MethodGet,
		path:       "/" + TableRoadReports + "/export.pdf",
		authorized: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.err()
	}
	return resp.body, nil
}
