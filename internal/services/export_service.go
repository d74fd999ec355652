package services

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// exportColumns are the table columns of the moderation export, with widths in mm
var exportColumns = []struct {
	title string
	width float64
}{
	{"ID", 12},
	{"Submitted", 30},
	{"Road", 45},
	{"Subdivision", 45},
	{"Town", 35},
	{"Cause", 25},
	{"Blocked for", 30},
	{"Status", 22},
}

// exportService implements ExportService
type exportService struct {
	reportRepo RoadReportRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService creates a new export service
func NewExportService(reportRepo RoadReportRepository, logger *zap.Logger) *exportService {
	return &exportService{
		reportRepo: reportRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// ExportPDF renders the reports matching the query as a landscape A4 document.
// Only admins may export.
func (s *exportService) ExportPDF(ctx context.Context, claims *service.Claims, q models.Query) ([]byte, error) {
	if claims == nil {
		return nil, apperrors.New(apperrors.KindAuthRequired, "sign in to export reports")
	}
	if !claims.IsAdmin {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can export reports")
	}
	if q.Limit == 0 {
		q.Limit = models.MaxQueryLimit
	}

	reports, err := s.reportRepo.List(ctx, q)
	if err != nil {
		return nil, asReadError(err, "failed to load reports")
	}

	data, err := buildReportsPDF(reports, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to render reports pdf", zap.Error(err))
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return data, nil
}

func buildReportsPDF(reports []models.RoadReport, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	// Segment titles use en dashes; core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Road reports", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Gilgit-Baltistan road reports")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s UTC", generatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(7)

	counts := map[models.ReportStatus]int{}
	for _, report := range reports {
		counts[report.Status]++
	}
	pdf.Cell(0, 8, fmt.Sprintf("Total reports: %d (pending %d, verified %d, incorrect %d)",
		len(reports),
		counts[models.ReportStatusPending],
		counts[models.ReportStatusVerified],
		counts[models.ReportStatusIncorrect],
	))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range exportColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	rows := slices.Clone(reports)
	slices.SortStableFunc(rows, func(a, b models.RoadReport) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	for _, report := range rows {
		values := []string{
			fmt.Sprintf("%d", report.ID),
			report.CreatedAt.UTC().Format("2006-01-02 15:04"),
			report.RoadName,
			report.Subdivision,
			report.NearestTown,
			string(report.Cause),
			report.BlockedDuration,
			string(report.Status),
		}
		for i, col := range exportColumns {
			pdf.CellFormat(col.width, 6, truncateCell(pdf, tr(values[i]), col.width-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// truncateCell shortens text until it fits the cell width
func truncateCell(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
