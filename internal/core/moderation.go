package core

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

// ModerationView lists the reports visible to the signed-in identity and lets admins moderate them
type ModerationView struct {
	session IdentitySource
	store   ReportStore
	logger  *zap.Logger

	mu      sync.Mutex
	reports []models.RoadReport
}

// NewModerationView creates an empty view
func NewModerationView(session IdentitySource, store ReportStore, logger *zap.Logger) *ModerationView {
	return &ModerationView{session: session, store: store, logger: logger}
}

// ReportsQuery returns the listing query for identity: newest first,
// scoped to the identity's own reports unless it is an admin
func ReportsQuery(identity *models.Identity) models.Query {
	q := models.Query{
		Order: &models.Order{Column: "created_at", Ascending: false},
		Limit: models.MaxQueryLimit,
	}
	if !identity.IsAdmin {
		q.Filters = []models.Filter{{Column: "user_id", Value: strconv.Itoa(identity.ID)}}
	}
	return q
}

// LoadReports loads the reports of the signed-in user, or every report for admins
func (v *ModerationView) LoadReports(ctx context.Context) ([]models.RoadReport, error) {
	state, err := v.session.WaitReady(ctx)
	if err != nil {
		return nil, err
	}
	if !state.SignedIn() {
		return nil, newLoginRequired(ReportsPath)
	}
	identity := state.Identity

	reports, err := v.store.ListReports(ctx, ReportsQuery(identity))
	if err != nil {
		v.logger.Error("failed to load reports", zap.Int("user_id", identity.ID), zap.Error(err))
		return nil, readError(err, "couldn't load reports")
	}

	if !identity.IsAdmin {
		reports = slices.DeleteFunc(reports, func(r models.RoadReport) bool {
			return r.UserID != identity.ID
		})
	}
	slices.SortStableFunc(reports, func(a, b models.RoadReport) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	v.mu.Lock()
	v.reports = reports
	v.mu.Unlock()

	return slices.Clone(reports), nil
}

// Reports returns the loaded reports
func (v *ModerationView) Reports() []models.RoadReport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.reports)
}

// UpdateStatus moves a loaded report to verified or incorrect.
// Only admins may do this; on failure the previous status stays in place.
func (v *ModerationView) UpdateStatus(ctx context.Context, reportID int, status models.ReportStatus) (*models.RoadReport, error) {
	state, err := v.session.WaitReady(ctx)
	if err != nil {
		return nil, err
	}
	if !state.SignedIn() {
		return nil, newLoginRequired(ReportsPath)
	}
	if !state.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can moderate reports")
	}
	if !status.IsModerationTarget() {
		return nil, apperrors.New(apperrors.KindValidation, "status must be verified or incorrect")
	}

	updated, err := v.store.UpdateReportStatus(ctx, reportID, status)
	if err != nil {
		v.logger.Error("failed to update report status",
			zap.Int("report_id", reportID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, writeError(err, "couldn't update the report")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.reports {
		if v.reports[i].ID == reportID {
			v.reports[i].Status = updated.Status
			report := v.reports[i]
			return &report, nil
		}
	}
	return updated, nil
}
