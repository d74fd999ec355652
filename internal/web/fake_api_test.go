package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/remote"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testCSRF        = "test-csrf-token"
	userToken       = "token-amina"
	adminToken      = "token-admin"
	staleToken      = "token-expired"
	staleRefresh    = "refresh-stale"
	renewedRefresh  = "refresh-amina-2"
	correctPassword = "correct-horse"
)

var (
	amina     = &models.Identity{ID: 7, Email: "amina@example.com", DisplayName: "Amina"}
	moderator = &models.Identity{ID: 1, Email: "mod@gbroads.pk", DisplayName: "Moderator", IsAdmin: true}
)

// fakeAPI is an in-memory Remote Data Service
type fakeAPI struct {
	mu sync.Mutex

	roads        []models.Road
	segments     map[int][]models.RoadSegment
	reports      []models.RoadReport
	roadsStatus  int
	insertStatus int
	logoutStatus int

	inserted     []models.NewReportRequest
	uploads      []string
	updates      map[int]models.ReportStatus
	reportQuery  string
	authorizeTo  string
	signups      int
	logouts      int
	segmentReads int
}

func newFakeAPI() *fakeAPI {
	updated := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &fakeAPI{
		roads: []models.Road{
			{ID: 2, Name: "Skardu Road", Acronym: "S1", Status: models.RoadStatusClosed, SortOrder: 2, UpdatedAt: updated},
			{ID: 1, Name: "Karakoram Highway", Acronym: "KKH", Status: models.RoadStatusOpen, SortOrder: 1, UpdatedAt: updated},
		},
		segments: map[int][]models.RoadSegment{
			1: {
				{ID: 11, RoadID: 1, Title: "Gilgit to Aliabad", Status: models.RoadStatusOpen, Sequence: 1},
				{ID: 12, RoadID: 1, Title: "Aliabad to Sost", Status: models.RoadStatusDelays, StatusNote: "Slow near Attabad", Sequence: 2},
			},
		},
		reports: []models.RoadReport{
			{ID: 3, RoadID: 1, RoadName: "Karakoram Highway", UserID: 7, NearestTown: "Aliabad", BlockedDuration: "2 hours",
				Cause: models.CauseLandslide, Status: models.ReportStatusPending, CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
			{ID: 4, RoadID: 2, RoadName: "Skardu Road", UserID: 9, NearestTown: "Shengus", BlockedDuration: "since last night",
				Cause: models.CauseSnowfall, Status: models.ReportStatusPending, CreatedAt: time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)},
		},
		updates: make(map[int]models.ReportStatus),
	}
}

func (f *fakeAPI) identity(r *http.Request) *models.Identity {
	switch strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") {
	case userToken:
		return amina
	case adminToken:
		return moderator
	default:
		return nil
	}
}

func (f *fakeAPI) requireIdentity(w http.ResponseWriter, r *http.Request) *models.Identity {
	identity := f.identity(r)
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token", "code": "auth_required"})
	}
	return identity
}

func aminaSession(refresh string) models.Session {
	return models.Session{AccessToken: userToken, RefreshToken: refresh, User: amina}
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/roads", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.roadsStatus != 0 {
				writeJSON(w, f.roadsStatus, map[string]string{"error": "database unavailable", "code": "internal"})
				return
			}
			writeJSON(w, http.StatusOK, f.roads)
		})
		r.Get("/road_segments", func(w http.ResponseWriter, r *http.Request) {
			id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Query().Get("road_id"), "eq."))
			f.mu.Lock()
			defer f.mu.Unlock()
			f.segmentReads++
			segments := f.segments[id]
			if segments == nil {
				segments = []models.RoadSegment{}
			}
			writeJSON(w, http.StatusOK, segments)
		})

		r.Get("/auth/user", func(w http.ResponseWriter, r *http.Request) {
			if identity := f.requireIdentity(w, r); identity != nil {
				writeJSON(w, http.StatusOK, identity)
			}
		})
		r.Post("/auth/token", func(w http.ResponseWriter, r *http.Request) {
			var req models.PasswordSignInRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Email != amina.Email || req.Password != correctPassword {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password", "code": "auth_required"})
				return
			}
			writeJSON(w, http.StatusOK, aminaSession("refresh-amina"))
		})
		r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			var req models.RefreshRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.RefreshToken != staleRefresh {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token", "code": "auth_required"})
				return
			}
			writeJSON(w, http.StatusOK, aminaSession(renewedRefresh))
		})
		r.Post("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.signups++
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, aminaSession("refresh-new"))
		})
		r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.logouts++
			if f.logoutStatus != 0 {
				writeJSON(w, f.logoutStatus, map[string]string{"error": "unavailable", "code": "internal"})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/auth/authorize", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.authorizeTo = r.URL.Query().Get("redirect_to")
			f.mu.Unlock()
			http.Redirect(w, r, "https://accounts.google.com/o/oauth2/v2/auth?state=abc", http.StatusFound)
		})
		r.Post("/auth/exchange", func(w http.ResponseWriter, r *http.Request) {
			var req models.ExchangeRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Code != "good-code" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired code", "code": "auth_required"})
				return
			}
			writeJSON(w, http.StatusOK, aminaSession("refresh-amina"))
		})
		r.Post("/auth/otp", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
			var req models.VerifyOTPRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Code != "123456" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired code", "code": "auth_required"})
				return
			}
			writeJSON(w, http.StatusOK, aminaSession("refresh-amina"))
		})

		r.Get("/road_reports", func(w http.ResponseWriter, r *http.Request) {
			if f.requireIdentity(w, r) == nil {
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.reportQuery = r.URL.RawQuery
			writeJSON(w, http.StatusOK, f.reports)
		})
		r.Post("/road_reports", func(w http.ResponseWriter, r *http.Request) {
			identity := f.requireIdentity(w, r)
			if identity == nil {
				return
			}
			var req models.NewReportRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.insertStatus != 0 {
				writeJSON(w, f.insertStatus, map[string]string{"error": "database unavailable", "code": "internal"})
				return
			}
			f.inserted = append(f.inserted, req)
			writeJSON(w, http.StatusCreated, models.RoadReport{
				ID: 100, RoadID: req.RoadID, RoadName: req.RoadName, UserID: identity.ID,
				NearestTown: req.NearestTown, BlockedDuration: req.BlockedDuration, Subdivision: req.Subdivision,
				Cause: models.Cause(req.Cause), PhotoURL: req.PhotoURL, Status: models.ReportStatusPending,
				CreatedAt: time.Now(),
			})
		})
		r.Get("/road_reports/export.pdf", func(w http.ResponseWriter, r *http.Request) {
			if f.requireIdentity(w, r) == nil {
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 reports"))
		})
		r.Patch("/road_reports/{id}", func(w http.ResponseWriter, r *http.Request) {
			if f.requireIdentity(w, r) == nil {
				return
			}
			id, _ := strconv.Atoi(chi.URLParam(r, "id"))
			var req models.UpdateReportRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			defer f.mu.Unlock()
			f.updates[id] = req.Status
			writeJSON(w, http.StatusOK, models.RoadReport{ID: id, Status: req.Status})
		})

		r.Post("/storage/{bucket}/*", func(w http.ResponseWriter, r *http.Request) {
			if f.requireIdentity(w, r) == nil {
				return
			}
			key := chi.URLParam(r, "bucket") + "/" + chi.URLParam(r, "*")
			f.mu.Lock()
			f.uploads = append(f.uploads, key)
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, map[string]string{"key": chi.URLParam(r, "*")})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestSite serves api and returns the site router pointed at it
func newTestSite(t *testing.T, api *fakeAPI) (http.Handler, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(api.router())
	t.Cleanup(server.Close)

	site, err := NewSite(Options{
		Remote: remote.Options{
			BaseURL:    server.URL,
			APIKey:     "public-key",
			Timeout:    2 * time.Second,
			MaxRetries: 0,
		},
		PublicOrigin:  "https://roads.example.pk/",
		RedirectDelay: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	handler, err := site.Routes()
	require.NoError(t, err)
	return handler, server
}

func sessionCookies(access, refresh string) []*http.Cookie {
	cookies := []*http.Cookie{{Name: accessTokenCookie, Value: access}}
	if refresh != "" {
		cookies = append(cookies, &http.Cookie{Name: refreshTokenCookie, Value: refresh})
	}
	return cookies
}

func get(handler http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// postForm submits a urlencoded form with a valid CSRF token
func postForm(handler http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	form.Set(csrfFieldName, testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

type upload struct {
	name string
	body []byte
}

// postMultipart submits a multipart form with a valid CSRF token and an optional photo
func postMultipart(t *testing.T, handler http.Handler, path string, fields map[string]string, photo *upload, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(csrfFieldName, testCSRF))
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		part, err := mw.CreateFormFile("photo", photo.name)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(photo.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
