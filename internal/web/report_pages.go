package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/core"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory is how much of a form is held in memory before spilling to disk
const multipartMemory = 1 << 20

type reportFormPage struct {
	basePage
	Road     models.Road
	Segments []models.RoadSegment
	Causes   []models.Cause
	Form     core.ReportForm
	Action   string
}

func (s *Site) newSubmissionFlow(pc *pageContext) *core.SubmissionFlow {
	return core.NewSubmissionFlow(
		pc.session,
		pc.client,
		pc.client.Storage,
		metaRefreshNavigator{logger: s.logger},
		core.SubmissionOptions{PhotoBucket: s.opts.PhotoBucket, RedirectDelay: s.opts.RedirectDelay},
		s.logger,
	)
}

// reportForm shows the submission form, or sends anonymous visitors to login after a short delay
func (s *Site) reportForm(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	roadID, ok := pathID(r)
	if !ok {
		pc.fail(apperrors.New(apperrors.KindNotFound, "We couldn't find that road."), "road not found")
		return
	}

	flow := s.newSubmissionFlow(pc)
	defer flow.Close()

	if err := flow.Guard(r.Context(), roadID); err != nil {
		s.renderGuardRedirect(pc, flow, err)
		return
	}

	road, segments, err := s.loadRoad(r.Context(), pc, roadID)
	if err != nil {
		pc.fail(err, "couldn't load the road")
		return
	}
	pc.render(http.StatusOK, pageReportForm, s.reportFormPage(pc, road, segments, core.ReportForm{}))
}

func (s *Site) submitReport(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	roadID, ok := pathID(r)
	if !ok {
		pc.fail(apperrors.New(apperrors.KindNotFound, "We couldn't find that road."), "road not found")
		return
	}

	road, segments, err := s.loadRoad(r.Context(), pc, roadID)
	if err != nil {
		pc.fail(err, "couldn't load the road")
		return
	}

	form, cleanup, err := readReportForm(r)
	if err != nil {
		page := s.reportFormPage(pc, road, segments, form)
		page.Error = apperrors.Message(err, "Couldn't read the form. Please try again.")
		pc.render(statusForError(err), pageReportForm, page)
		return
	}
	defer cleanup()

	flow := s.newSubmissionFlow(pc)
	defer flow.Close()

	if _, err := flow.Submit(r.Context(), road, segments, form); err != nil {
		var loginErr *core.LoginRequiredError
		if errors.As(err, &loginErr) {
			pc.redirect(loginErr.LoginPath())
			return
		}
		page := s.reportFormPage(pc, road, segments, flow.Form())
		page.Error = apperrors.Message(err, "Submission failed, please try again.")
		pc.render(statusForError(err), pageReportForm, page)
		return
	}

	page := pc.base("Report submitted")
	if redirect, ok := flow.PendingRedirect(); ok {
		page.Refresh = newRefresh(redirect)
	}
	pc.render(http.StatusOK, pageReportSubmitted, page)
}

// renderGuardRedirect shows the sign-in notice with the redirect Guard scheduled
func (s *Site) renderGuardRedirect(pc *pageContext, flow *core.SubmissionFlow, err error) {
	var loginErr *core.LoginRequiredError
	if !errors.As(err, &loginErr) {
		pc.fail(err, "couldn't check your session")
		return
	}

	page := pc.base("Sign in required")
	if redirect, ok := flow.PendingRedirect(); ok {
		page.Refresh = newRefresh(redirect)
	} else {
		page.Refresh = newRefresh(core.Redirect{Path: loginErr.LoginPath(), Delay: s.opts.RedirectDelay})
	}
	pc.render(http.StatusOK, pageSigninRequired, page)
}

// loadRoad finds the road in the catalog and loads its segments
func (s *Site) loadRoad(ctx context.Context, pc *pageContext, roadID int) (models.Road, []models.RoadSegment, error) {
	catalog := core.NewCatalogLoader(pc.client, s.logger)
	state := catalog.LoadRoads(ctx)
	if state.Failed {
		return models.Road{}, nil, state.Err
	}

	road, ok := catalog.Road(roadID)
	if !ok {
		return models.Road{}, nil, apperrors.New(apperrors.KindNotFound, "We couldn't find that road.")
	}

	segments, err := catalog.LoadSegments(ctx, roadID)
	if err != nil {
		return models.Road{}, nil, err
	}
	return road, segments, nil
}

func (s *Site) reportFormPage(pc *pageContext, road models.Road, segments []models.RoadSegment, form core.ReportForm) reportFormPage {
	return reportFormPage{
		basePage: pc.base("Report Road Issue"),
		Road:     road,
		Segments: segments,
		Causes:   models.Causes,
		Form:     form,
		Action:   core.ReportPath(road.ID),
	}
}

// readReportForm parses the multipart form; the returned cleanup closes the photo
func readReportForm(r *http.Request) (core.ReportForm, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ReportForm{}, noop, apperrors.Wrap(apperrors.KindValidation, "The photo is too large.", err)
		}
		return core.ReportForm{}, noop, apperrors.Wrap(apperrors.KindValidation, "Couldn't read the form.", err)
	}

	form := core.ReportForm{
		NearestTown:     r.FormValue("nearest_town"),
		BlockedDuration: r.FormValue("blocked_duration"),
		Cause:           r.FormValue("cause"),
		Subdivision:     r.FormValue("subdivision"),
	}

	file, header, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, noop, nil
	case err != nil:
		return form, noop, apperrors.Wrap(apperrors.KindValidation, "Couldn't read the photo.", err)
	}
	if header.Size == 0 {
		file.Close()
		return form, noop, nil
	}

	form.Photo = &core.Photo{Filename: header.Filename, Body: file}
	return form, func() { file.Close() }, nil
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type reportsPage struct {
	basePage
	Reports []models.RoadReport
}

// myReports lists the signed-in user's reports; admins see every report with moderation controls
func (s *Site) myReports(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	view := core.NewModerationView(pc.session, pc.client, s.logger)
	reports, err := view.LoadReports(r.Context())
	if err != nil {
		pc.fail(err, "couldn't load reports")
		return
	}

	title := "My Road Reports"
	if pc.session.State().IsAdmin() {
		title = "Road Reports"
	}
	pc.render(http.StatusOK, pageReports, reportsPage{basePage: pc.base(title), Reports: reports})
}

func (s *Site) updateReportStatus(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	reportID, ok := pathID(r)
	if !ok {
		pc.fail(apperrors.New(apperrors.KindNotFound, "We couldn't find that report."), "report not found")
		return
	}

	view := core.NewModerationView(pc.session, pc.client, s.logger)
	_, err := view.UpdateStatus(r.Context(), reportID, models.ReportStatus(r.FormValue("status")))
	var loginErr *core.LoginRequiredError
	switch {
	case err == nil:
		pc.redirectWithMessage(core.ReportsPath, "notice", "report_updated")
	case errors.As(err, &loginErr):
		pc.redirect(loginErr.LoginPath())
	case apperrors.Is(err, apperrors.KindForbidden):
		pc.redirectWithMessage(core.ReportsPath, "error", "forbidden")
	case apperrors.Is(err, apperrors.KindValidation):
		pc.redirectWithMessage(core.ReportsPath, "error", "invalid_status")
	default:
		pc.redirectWithMessage(core.ReportsPath, "error", "update_failed")
	}
}

// exportReports streams the moderation PDF to admins
func (s *Site) exportReports(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()

	state := pc.state()
	switch {
	case !state.SignedIn():
		pc.redirect(core.LoginRedirect(core.ReportsPath))
		return
	case !state.IsAdmin():
		pc.fail(apperrors.New(apperrors.KindForbidden, "Only admins can export reports."), "export forbidden")
		return
	}

	pdf, err := pc.client.ExportReportsPDF(r.Context())
	if err != nil {
		pc.fail(err, "couldn't export reports")
		return
	}

	pc.flushCookies()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="road-reports.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	if _, err := w.Write(pdf); err != nil {
		s.logger.Warn("failed to write report export", zap.Error(err))
	}
}
