package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Default submission settings
const (
	DefaultPhotoBucket   = "road-photos"
	DefaultRedirectDelay = 5 * time.Second
	maxPhotoNameLength   = 100
)

// ReportStore reads and writes road reports
type ReportStore interface {
	// ListReports reads reports matching q
	ListReports(ctx context.Context, q models.Query) ([]models.RoadReport, error)
	// InsertReport stores a report for the signed-in user
	InsertReport(ctx context.Context, req *models.NewReportRequest) (*models.RoadReport, error)
	// UpdateReportStatus moves a report to a moderation status
	UpdateReportStatus(ctx context.Context, id int, status models.ReportStatus) (*models.RoadReport, error)
}

// ObjectStore uploads photos and resolves their public URLs
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error)
	PublicURL(bucket, objectPath string) string
}

// IdentitySource resolves the signed-in identity once the session is ready
type IdentitySource interface {
	WaitReady(ctx context.Context) (SessionState, error)
}

// SubmissionState is a step of the report submission flow
type SubmissionState string

// SubmissionState constants
const (
	SubmissionIdle           SubmissionState = "idle"
	SubmissionValidating     SubmissionState = "validating"
	SubmissionUploadingPhoto SubmissionState = "uploading_photo"
	SubmissionSubmitting     SubmissionState = "submitting"
	SubmissionSubmitted      SubmissionState = "submitted"
	SubmissionRejected       SubmissionState = "rejected"
)

// Photo is an attached image file
type Photo struct {
	Filename string
	Body     io.Reader
}

// ReportForm holds the fields of the submission form
type ReportForm struct {
	NearestTown     string `form:"nearest_town" validate:"required,max=255"`
	BlockedDuration string `form:"blocked_duration" validate:"required,max=255"`
	Cause           string `form:"cause" validate:"required"`
	Subdivision     string `form:"subdivision" validate:"max=255"`
	Photo           *Photo `form:"-" validate:"-"`
}

// SubmissionOptions configures a SubmissionFlow
type SubmissionOptions struct {
	PhotoBucket   string
	RedirectDelay time.Duration
}

// SubmissionFlow submits one report form for one road
type SubmissionFlow struct {
	session    IdentitySource
	store      ReportStore
	objects    ObjectStore
	redirector *Redirector
	logger     *zap.Logger
	opts       SubmissionOptions
	now        func() time.Time

	mu     sync.Mutex
	state  SubmissionState
	err    error
	form   ReportForm
	report *models.RoadReport
}

// NewSubmissionFlow creates a flow in the idle state
func NewSubmissionFlow(
	session IdentitySource,
	store ReportStore,
	objects ObjectStore,
	nav Navigator,
	opts SubmissionOptions,
	logger *zap.Logger,
) *SubmissionFlow {
	if opts.PhotoBucket == "" {
		opts.PhotoBucket = DefaultPhotoBucket
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	return &SubmissionFlow{
		session:    session,
		store:      store,
		objects:    objects,
		redirector: NewRedirector(nav),
		logger:     logger,
		opts:       opts,
		now:        time.Now,
		state:      SubmissionIdle,
	}
}

// Guard checks that someone is signed in before the form is shown.
// Anonymous visitors get a LoginRequiredError and a redirect to login after the configured delay.
func (f *SubmissionFlow) Guard(ctx context.Context, roadID int) error {
	state, err := f.session.WaitReady(ctx)
	if err != nil {
		return err
	}
	if !state.NeedsLogin() {
		return nil
	}

	loginErr := newLoginRequired(ReportPath(roadID))
	f.redirector.Schedule(loginErr.LoginPath(), f.opts.RedirectDelay)
	return loginErr
}

// Submit validates the form, uploads the photo if any and inserts the report.
// segments are the road's segments; a subdivision is required when there are any.
func (f *SubmissionFlow) Submit(ctx context.Context, road models.Road, segments []models.RoadSegment, form ReportForm) (*models.RoadReport, error) {
	f.mu.Lock()
	f.form = form
	f.report = nil
	f.mu.Unlock()
	f.setState(SubmissionValidating, nil)

	state, err := f.session.WaitReady(ctx)
	if err != nil {
		return nil, f.reject(err)
	}
	if !state.SignedIn() {
		return nil, f.reject(newLoginRequired(ReportPath(road.ID)))
	}

	cause, err := validateForm(form, segments)
	if err != nil {
		return nil, f.reject(err)
	}

	var photoURL *string
	if form.Photo != nil {
		f.setState(SubmissionUploadingPhoto, nil)

		objectPath := PhotoPath(state.Identity.ID, f.now(), form.Photo.Filename)
		if _, err := f.objects.Upload(ctx, f.opts.PhotoBucket, objectPath, form.Photo.Body); err != nil {
			f.logger.Error("failed to upload report photo",
				zap.Int("user_id", state.Identity.ID),
				zap.String("path", objectPath),
				zap.Error(err),
			)
			return nil, f.reject(uploadError(err))
		}
		url := f.objects.PublicURL(f.opts.PhotoBucket, objectPath)
		photoURL = &url
	}

	f.setState(SubmissionSubmitting, nil)
	report, err := f.store.InsertReport(ctx, &models.NewReportRequest{
		RoadID:          road.ID,
		RoadName:        road.Name,
		NearestTown:     strings.TrimSpace(form.NearestTown),
		BlockedDuration: strings.TrimSpace(form.BlockedDuration),
		Subdivision:     strings.TrimSpace(form.Subdivision),
		Cause:           string(cause),
		PhotoURL:        photoURL,
	})
	if err != nil {
		f.logger.Error("failed to insert report", zap.Int("road_id", road.ID), zap.Error(err))
		return nil, f.reject(writeError(err, "submission failed, please try again"))
	}

	f.mu.Lock()
	f.report = report
	f.form = ReportForm{}
	f.mu.Unlock()
	f.setState(SubmissionSubmitted, nil)
	f.redirector.Schedule(HomePath, f.opts.RedirectDelay)

	f.logger.Info("report submitted", zap.Int("report_id", report.ID), zap.Int("road_id", road.ID))
	return report, nil
}

// State returns the current step and the rejection reason, if any
func (f *SubmissionFlow) State() (SubmissionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.err
}

// Form returns the last submitted form; it is kept after a failure and cleared after success
func (f *SubmissionFlow) Form() ReportForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Report returns the stored report after a successful submission
func (f *SubmissionFlow) Report() *models.RoadReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report
}

// PendingRedirect returns the navigation scheduled by Guard or Submit
func (f *SubmissionFlow) PendingRedirect() (Redirect, bool) {
	return f.redirector.Pending()
}

// Close tears the flow down; a scheduled redirect never fires afterwards
func (f *SubmissionFlow) Close() {
	f.redirector.Close()
}

func (f *SubmissionFlow) setState(state SubmissionState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.err = err
}

func (f *SubmissionFlow) reject(err error) error {
	f.setState(SubmissionRejected, err)
	return err
}

// PhotoPath returns "<userID>/<unix millis>-<safe file name>"
func PhotoPath(userID int, at time.Time, filename string) string {
	return strconv.Itoa(userID) + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + safeFileName(filename)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "photo"
	}
	if len(name) > maxPhotoNameLength {
		name = name[len(name)-maxPhotoNameLength:]
	}
	return name
}

func uploadError(err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindTimeout, apperrors.KindAuthRequired, apperrors.KindValidation:
		return err
	default:
		return apperrors.Wrap(apperrors.KindUpload, "photo upload failed", err)
	}
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

var fieldLabels = map[string]string{
	"nearest_town":     "Nearest town",
	"blocked_duration": "Blocked duration",
	"cause":            "Cause",
	"subdivision":      "Affected subdivision",
}

// validateForm checks the form without any network call
func validateForm(form ReportForm, segments []models.RoadSegment) (models.Cause, error) {
	form.NearestTown = strings.TrimSpace(form.NearestTown)
	form.BlockedDuration = strings.TrimSpace(form.BlockedDuration)
	form.Subdivision = strings.TrimSpace(form.Subdivision)

	if err := formValidator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return "", apperrors.Wrap(apperrors.KindValidation, "invalid form", err)
		}
		fe := fieldErrs[0]
		label := fieldLabels[fe.Field()]
		switch fe.Tag() {
		case "required":
			return "", apperrors.Wrap(apperrors.KindValidation, label+" is required", err)
		case "max":
			return "", apperrors.Wrap(apperrors.KindValidation, fmt.Sprintf("%s must be at most %s characters", label, fe.Param()), err)
		default:
			return "", apperrors.Wrap(apperrors.KindValidation, label+" is invalid", err)
		}
	}

	cause, err := models.ParseCause(form.Cause)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, "Select a cause from the list", err)
	}

	if len(segments) > 0 {
		if form.Subdivision == "" {
			return "", apperrors.New(apperrors.KindValidation, "Select the affected subdivision")
		}
		known := false
		for _, s := range segments {
			if s.Title == form.Subdivision {
				known = true
				break
			}
		}
		if !known {
			return "", apperrors.New(apperrors.KindValidation, "Select the affected subdivision from the list")
		}
	}

	return cause, nil
}
