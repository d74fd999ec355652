package remote

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects identity-change events
type eventRecorder struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (r *eventRecorder) listen(event models.AuthEvent, _ *models.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []models.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuthEvent(nil), r.events...)
}

// fakeAuthServer issues "access-N"/"refresh-N" token pairs and accepts only the latest pair
type fakeAuthServer struct {
	mu           sync.Mutex
	generation   int
	refreshCalls int
	logoutStatus int
	revoked      []string
}

func (s *fakeAuthServer) session() models.Session {
	s.generation++
	n := string(rune('0' + s.generation))
	return models.Session{
		AccessToken:  "access-" + n,
		RefreshToken: "refresh-" + n,
		User:         &models.Identity{ID: 7, Email: "amina@example.com", DisplayName: "Amina"},
	}
}

func (s *fakeAuthServer) current() string {
	return "access-" + string(rune('0'+s.generation))
}

func (s *fakeAuthServer) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var req models.PasswordSignInRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password", "code": "auth_required"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.session())
	})
	r.Post("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.refreshCalls++
		if req.RefreshToken != "refresh-"+string(rune('0'+s.generation)) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token", "code": "auth_required"})
			return
		}
		writeJSON(w, http.StatusOK, s.session())
	})
	r.Get("/api/v1/auth/user", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+s.current() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token", "code": "auth_required"})
			return
		}
		writeJSON(w, http.StatusOK, models.Identity{ID: 7, Email: "amina@example.com", DisplayName: "Amina"})
	})
	r.Post("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.revoked = append(s.revoked, req.RefreshToken)
		if s.logoutStatus != 0 {
			w.WriteHeader(s.logoutStatus)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/v1/auth/authorize", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("provider") != "google" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported provider", "code": "validation_failed"})
			return
		}
		http.Redirect(w, r, "https://accounts.google.com/o/oauth2/v2/auth?state=abc", http.StatusFound)
	})
	return r
}

func TestAuth_SignInWithPassword(t *testing.T) {
	server := &fakeAuthServer{}
	client, _ := newTestClient(t, server.router())
	recorder := &eventRecorder{}
	client.Auth.OnIdentityChange(recorder.listen)

	t.Run("wrong password", func(t *testing.T) {
		identity, err := client.Auth.SignInWithPassword(context.Background(), "amina@example.com", "wrong")

		assert.Nil(t, identity)
		assert.Equal(t, apperrors.KindAuthRequired, apperrors.KindOf(err))
		assert.Nil(t, client.Auth.Session())
		assert.Empty(t, recorder.all())
	})

	t.Run("success", func(t *testing.T) {
		identity, err := client.Auth.SignInWithPassword(context.Background(), "amina@example.com", "correct-horse")

		require.NoError(t, err)
		assert.Equal(t, "Amina", identity.DisplayName)
		assert.Equal(t, "access-1", client.Auth.Session().AccessToken)
		assert.Equal(t, []models.AuthEvent{models.AuthEventSignedIn}, recorder.all())
	})
}

func TestAuth_CurrentIdentity(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		client, _ := newTestClient(t, (&fakeAuthServer{}).router())

		identity, err := client.Auth.CurrentIdentity(context.Background())

		assert.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("expired access token is refreshed once", func(t *testing.T) {
		server := &fakeAuthServer{generation: 1}
		client, _ := newTestClient(t, server.router())
		client.Auth.SetSession(&models.Session{AccessToken: "stale", RefreshToken: "refresh-1"})
		recorder := &eventRecorder{}
		client.Auth.OnIdentityChange(recorder.listen)

		identity, err := client.Auth.CurrentIdentity(context.Background())

		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, 7, identity.ID)
		assert.Equal(t, "access-2", client.Auth.Session().AccessToken)
		assert.Equal(t, 1, server.refreshCalls)
		assert.Equal(t, []models.AuthEvent{models.AuthEventTokenRefreshed}, recorder.all())
	})

	t.Run("session with only a refresh token is refreshed first", func(t *testing.T) {
		server := &fakeAuthServer{generation: 1}
		client, _ := newTestClient(t, server.router())
		client.Auth.SetSession(&models.Session{RefreshToken: "refresh-1"})
		require.NotNil(t, client.Auth.Session())

		identity, err := client.Auth.CurrentIdentity(context.Background())

		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, 7, identity.ID)
		assert.Equal(t, 1, server.refreshCalls)
		assert.Equal(t, "access-2", client.Auth.Session().AccessToken)
		assert.Equal(t, "refresh-2", client.Auth.Session().RefreshToken)
	})

	t.Run("empty session is dropped", func(t *testing.T) {
		client, _ := newTestClient(t, (&fakeAuthServer{}).router())
		client.Auth.SetSession(&models.Session{})

		assert.Nil(t, client.Auth.Session())
	})

	t.Run("rejected refresh token signs out", func(t *testing.T) {
		server := &fakeAuthServer{generation: 3}
		client, _ := newTestClient(t, server.router())
		client.Auth.SetSession(&models.Session{AccessToken: "stale", RefreshToken: "refresh-1"})
		recorder := &eventRecorder{}
		client.Auth.OnIdentityChange(recorder.listen)

		identity, err := client.Auth.CurrentIdentity(context.Background())

		assert.NoError(t, err)
		assert.Nil(t, identity)
		assert.Nil(t, client.Auth.Session())
		assert.Equal(t, []models.AuthEvent{models.AuthEventSignedOut}, recorder.all())
	})
}

func TestAuth_SignOut(t *testing.T) {
	tests := []struct {
		name         string
		logoutStatus int
		expectError  bool
	}{
		{name: "revoked", logoutStatus: 0},
		{name: "service failure still clears the session", logoutStatus: http.StatusInternalServerError, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &fakeAuthServer{generation: 1, logoutStatus: tt.logoutStatus}
			client, _ := newTestClient(t, server.router())
			client.Auth.SetSession(&models.Session{AccessToken: "access-1", RefreshToken: "refresh-1"})
			recorder := &eventRecorder{}
			client.Auth.OnIdentityChange(recorder.listen)

			err := client.Auth.SignOut(context.Background())

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Nil(t, client.Auth.Session())
			assert.Equal(t, []string{"refresh-1"}, server.revoked)
			assert.Equal(t, []models.AuthEvent{models.AuthEventSignedOut}, recorder.all())
		})
	}
}

func TestAuth_OnIdentityChange_Unsubscribe(t *testing.T) {
	server := &fakeAuthServer{}
	client, _ := newTestClient(t, server.router())
	recorder := &eventRecorder{}
	unsubscribe := client.Auth.OnIdentityChange(recorder.listen)

	unsubscribe()
	unsubscribe()
	_, err := client.Auth.SignInWithPassword(context.Background(), "amina@example.com", "correct-horse")

	require.NoError(t, err)
	assert.Empty(t, recorder.all())
}

func TestAuth_SignInWithProvider(t *testing.T) {
	client, _ := newTestClient(t, (&fakeAuthServer{}).router())

	t.Run("returns the consent url without following it", func(t *testing.T) {
		location, err := client.Auth.SignInWithProvider(context.Background(), "google", "https://roads.example.pk/")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(location, "https://accounts.google.com/"))
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := client.Auth.SignInWithProvider(context.Background(), "myspace", "https://roads.example.pk/")

		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})
}

func TestStorage_Upload(t *testing.T) {
	var gotPath, gotAuth, gotFile, gotName string
	r := chi.NewRouter()
	r.Post("/api/v1/storage/{bucket}/*", func(w http.ResponseWriter, r *http.Request) {
		gotPath = chi.URLParam(r, "bucket") + "/" + chi.URLParam(r, "*")
		gotAuth = r.Header.Get("Authorization")

		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotName = part.FileName()
		data, _ := io.ReadAll(part)
		gotFile = string(data)

		writeJSON(w, http.StatusCreated, map[string]string{"key": gotPath, "public_url": "ignored"})
	})
	client, server := newTestClient(t, r)
	client.Auth.SetSession(&models.Session{AccessToken: "access", RefreshToken: "refresh"})

	key, err := client.Storage.Upload(context.Background(), "road-photos", "7/1700000000000-slide.jpg", strings.NewReader("jpeg-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "road-photos/7/1700000000000-slide.jpg", key)
	assert.Equal(t, key, gotPath)
	assert.Equal(t, "Bearer access", gotAuth)
	assert.Equal(t, "1700000000000-slide.jpg", gotName)
	assert.Equal(t, "jpeg-bytes", gotFile)
	assert.Equal(t,
		server.URL+"/api/v1/storage/public/road-photos/7/1700000000000-slide.jpg",
		client.Storage.PublicURL("road-photos", "7/1700000000000-slide.jpg"),
	)
}
