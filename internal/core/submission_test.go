package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var karakoramRoad = models.Road{ID: 1, Name: karakoram, Status: models.RoadStatusDelays, SortOrder: 1}

var karakoramSegments = []models.RoadSegment{
	{ID: 1, RoadID: 1, Title: "Gilgit to Aliabad", Sequence: 1},
	{ID: 2, RoadID: 1, Title: "Aliabad to Karimabad", Sequence: 2},
}

type submissionFixture struct {
	flow    *SubmissionFlow
	store   *mockReportStore
	objects *mockObjectStore
	nav     *mockNavigator
	timers  *fakeTimers
}

func newSubmissionFixture(session IdentitySource) *submissionFixture {
	fx := &submissionFixture{
		store:   &mockReportStore{},
		objects: &mockObjectStore{},
		nav:     &mockNavigator{},
		timers:  &fakeTimers{},
	}
	fx.flow = NewSubmissionFlow(session, fx.store, fx.objects, fx.nav, SubmissionOptions{}, zap.NewNop())
	fx.flow.redirector.after = fx.timers.after
	fx.flow.now = func() time.Time { return time.UnixMilli(1767225600000) }
	return fx
}

func TestNewSubmissionFlow(t *testing.T) {
	flow := NewSubmissionFlow(readySession(amina), &mockReportStore{}, &mockObjectStore{}, &mockNavigator{}, SubmissionOptions{}, zap.NewNop())

	assert.NotNil(t, flow)
	assert.Equal(t, DefaultPhotoBucket, flow.opts.PhotoBucket)
	assert.Equal(t, DefaultRedirectDelay, flow.opts.RedirectDelay)
	state, err := flow.State()
	assert.Equal(t, SubmissionIdle, state)
	assert.NoError(t, err)
}

func TestSubmissionFlow_KarakoramLandslideWithoutPhoto(t *testing.T) {
	fx := newSubmissionFixture(readySession(amina))

	report, err := fx.flow.Submit(context.Background(), karakoramRoad, nil, ReportForm{
		NearestTown:     "Aliabad",
		BlockedDuration: "2 hours",
		Cause:           "Landslide",
	})

	require.NoError(t, err)
	require.Len(t, fx.store.inserted, 1)
	inserted := fx.store.inserted[0]
	assert.Nil(t, inserted.PhotoURL)
	assert.Equal(t, karakoram, inserted.RoadName)
	assert.Equal(t, 1, inserted.RoadID)
	assert.Equal(t, "Landslide", inserted.Cause)

	assert.Nil(t, report.PhotoURL)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Equal(t, karakoram, report.RoadName)
	assert.Empty(t, fx.objects.uploads)

	state, stateErr := fx.flow.State()
	assert.Equal(t, SubmissionSubmitted, state)
	assert.NoError(t, stateErr)
	assert.Equal(t, report, fx.flow.Report())
}

func TestSubmissionFlow_Rejections(t *testing.T) {
	validForm := ReportForm{NearestTown: "Aliabad", BlockedDuration: "2 hours", Cause: "landslide", Subdivision: "Gilgit to Aliabad"}

	tests := []struct {
		name         string
		session      IdentitySource
		form         func(f ReportForm) ReportForm
		segments     []models.RoadSegment
		expectedKind apperrors.Kind
		expectedMsg  string
	}{
		{
			name:         "signed out",
			session:      readySession(nil),
			form:         func(f ReportForm) ReportForm { return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindAuthRequired,
		},
		{
			name:         "empty nearest town",
			session:      readySession(amina),
			form:         func(f ReportForm) ReportForm { f.NearestTown = "   "; return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindValidation,
			expectedMsg:  "Nearest town is required",
		},
		{
			name:         "empty duration",
			session:      readySession(amina),
			form:         func(f ReportForm) ReportForm { f.BlockedDuration = ""; return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindValidation,
			expectedMsg:  "Blocked duration is required",
		},
		{
			name:         "cause outside the list",
			session:      readySession(amina),
			form:         func(f ReportForm) ReportForm { f.Cause = "earthquake"; return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindValidation,
			expectedMsg:  "Select a cause from the list",
		},
		{
			name:         "missing subdivision on a road with segments",
			session:      readySession(amina),
			form:         func(f ReportForm) ReportForm { f.Subdivision = ""; return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindValidation,
			expectedMsg:  "Select the affected subdivision",
		},
		{
			name:         "unknown subdivision",
			session:      readySession(amina),
			form:         func(f ReportForm) ReportForm { f.Subdivision = "Skardu"; return f },
			segments:     karakoramSegments,
			expectedKind: apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newSubmissionFixture(tt.session)
			form := tt.form(validForm)
			form.Photo = &Photo{Filename: "slide.jpg", Body: strings.NewReader("jpeg")}

			report, err := fx.flow.Submit(context.Background(), karakoramRoad, tt.segments, form)

			assert.Nil(t, report)
			assert.Equal(t, tt.expectedKind, apperrors.KindOf(err))
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, apperrors.Message(err, ""))
			}
			assert.Empty(t, fx.objects.uploads, "no upload may happen before validation passes")
			assert.Empty(t, fx.store.inserted, "no insert may happen before validation passes")
			state, stateErr := fx.flow.State()
			assert.Equal(t, SubmissionRejected, state)
			assert.Equal(t, err, stateErr)
			_, pending := fx.flow.PendingRedirect()
			assert.False(t, pending)
		})
	}
}

func TestSubmissionFlow_Photo(t *testing.T) {
	form := ReportForm{
		NearestTown:     "Chilas",
		BlockedDuration: "1 day",
		Cause:           "Snowfall",
		Subdivision:     "Gilgit to Aliabad",
		Photo:           &Photo{Filename: `C:\Users\amina\My Photo (1).JPG`, Body: strings.NewReader("jpeg-bytes")},
	}

	t.Run("uploaded under the user folder", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(amina))

		report, err := fx.flow.Submit(context.Background(), karakoramRoad, karakoramSegments, form)

		require.NoError(t, err)
		expectedKey := "road-photos/7/1767225600000-My-Photo-1-.JPG"
		assert.Equal(t, "jpeg-bytes", fx.objects.uploads[expectedKey])
		require.NotNil(t, report.PhotoURL)
		assert.Equal(t, "http://api.local/api/v1/storage/public/"+expectedKey, *report.PhotoURL)
	})

	t.Run("upload failure aborts the submission", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(amina))
		fx.objects.err = errRemote
		form.Photo.Body = strings.NewReader("jpeg-bytes")

		report, err := fx.flow.Submit(context.Background(), karakoramRoad, karakoramSegments, form)

		assert.Nil(t, report)
		assert.Equal(t, apperrors.KindUpload, apperrors.KindOf(err))
		assert.Equal(t, "photo upload failed", apperrors.Message(err, ""))
		assert.Empty(t, fx.store.inserted)
		assert.Equal(t, "Chilas", fx.flow.Form().NearestTown, "the form is kept for retry")
	})
}

func TestSubmissionFlow_InsertFailure(t *testing.T) {
	fx := newSubmissionFixture(readySession(amina))
	fx.store.insertErr = errRemote
	form := ReportForm{NearestTown: "Aliabad", BlockedDuration: "2 hours", Cause: "Flooding"}

	report, err := fx.flow.Submit(context.Background(), karakoramRoad, nil, form)

	assert.Nil(t, report)
	assert.Equal(t, apperrors.KindWrite, apperrors.KindOf(err))
	assert.True(t, errors.Is(err, errRemote))
	assert.Equal(t, form, fx.flow.Form())
	_, pending := fx.flow.PendingRedirect()
	assert.False(t, pending)

	fx.store.insertErr = nil
	_, err = fx.flow.Submit(context.Background(), karakoramRoad, nil, fx.flow.Form())
	assert.NoError(t, err)
}

func TestSubmissionFlow_RedirectAfterSuccess(t *testing.T) {
	form := ReportForm{NearestTown: "Aliabad", BlockedDuration: "2 hours", Cause: "Landslide"}

	t.Run("navigates home after the delay", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(amina))

		_, err := fx.flow.Submit(context.Background(), karakoramRoad, nil, form)
		require.NoError(t, err)

		redirect, ok := fx.flow.PendingRedirect()
		require.True(t, ok)
		assert.Equal(t, Redirect{Path: HomePath, Delay: DefaultRedirectDelay}, redirect)
		assert.Empty(t, fx.nav.visited())

		fx.timers.fireActive()
		assert.Equal(t, []string{HomePath}, fx.nav.visited())
		_, ok = fx.flow.PendingRedirect()
		assert.False(t, ok)
	})

	t.Run("leaving the page cancels the redirect", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(amina))

		_, err := fx.flow.Submit(context.Background(), karakoramRoad, nil, form)
		require.NoError(t, err)
		fx.flow.Close()

		fx.timers.fireActive()
		// A callback that was already running when the timer stopped must not navigate either
		for _, tm := range fx.timers.timers {
			tm.fn()
		}
		assert.Empty(t, fx.nav.visited())
	})
}

func TestSubmissionFlow_Guard(t *testing.T) {
	t.Run("anonymous visitor goes to login after the delay", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(nil))

		err := fx.flow.Guard(context.Background(), 1)

		var loginErr *LoginRequiredError
		require.ErrorAs(t, err, &loginErr)
		assert.Equal(t, apperrors.KindAuthRequired, apperrors.KindOf(err))
		assert.Equal(t, "/login?next=%2Freport%2F1", loginErr.LoginPath())

		redirect, ok := fx.flow.PendingRedirect()
		require.True(t, ok)
		assert.Equal(t, DefaultRedirectDelay, redirect.Delay)
		assert.Empty(t, fx.nav.visited())

		fx.timers.fireActive()
		assert.Equal(t, []string{"/login?next=%2Freport%2F1"}, fx.nav.visited())
	})

	t.Run("signed in user sees the form", func(t *testing.T) {
		fx := newSubmissionFixture(readySession(amina))

		assert.NoError(t, fx.flow.Guard(context.Background(), 1))
		_, ok := fx.flow.PendingRedirect()
		assert.False(t, ok)
	})

	t.Run("loading session never redirects", func(t *testing.T) {
		session := &staticSession{state: SessionState{Phase: PhaseLoading}, err: context.DeadlineExceeded}
		fx := newSubmissionFixture(session)

		err := fx.flow.Guard(context.Background(), 1)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		_, ok := fx.flow.PendingRedirect()
		assert.False(t, ok)
	})
}

func TestPhotoPath(t *testing.T) {
	at := time.UnixMilli(1767225600000)
	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{name: "plain", filename: "slide.jpg", expected: "7/1767225600000-slide.jpg"},
		{name: "directory stripped", filename: "../../etc/passwd", expected: "7/1767225600000-passwd"},
		{name: "unsafe characters", filename: "road blocked!.png", expected: "7/1767225600000-road-blocked-.png"},
		{name: "nothing usable", filename: "???", expected: "7/1767225600000-photo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhotoPath(7, at, tt.filename))
		})
	}
}
