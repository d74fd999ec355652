package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/oauth"
	"github.com/gbroads/roadstatus/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type oauthFixture struct {
	svc          *oauthService
	provider     *mockOAuthProvider
	stateStore   *mockOneTimeStore
	userRepo     *mockUserRepository
	identityRepo *mockUserIdentityRepository
	metrics      *mockMetrics
}

func newOAuthFixture() *oauthFixture {
	logger, _ := zap.NewDevelopment()
	f := &oauthFixture{
		provider: &mockOAuthProvider{info: &oauth.UserInfo{
			ProviderUserID: "g-42",
			Email:          "Karim@Example.com",
			Name:           "Karim",
			Provider:       oauth.ProviderGoogle,
		}},
		stateStore:   newMockOneTimeStore(),
		userRepo:     &mockUserRepository{},
		identityRepo: &mockUserIdentityRepository{},
		metrics:      &mockMetrics{},
	}
	tokenRepo := newMockUserTokenRepository()
	f.svc = NewOAuthService(
		map[string]oauth.Provider{oauth.ProviderGoogle: f.provider},
		f.stateStore,
		newMockOneTimeStore(),
		f.userRepo,
		f.identityRepo,
		NewSessionIssuer(newTestTokenGenerator(), tokenRepo, testAdminSuffix),
		security.NewTextSanitizer(),
		f.metrics,
		logger,
		[]string{"http://localhost:3000"},
	)
	return f
}

// authorize starts a sign-in and returns the state handed to the provider
func (f *oauthFixture) authorize(t *testing.T) string {
	t.Helper()
	loginURL, err := f.svc.Authorize(context.Background(), oauth.ProviderGoogle, "http://localhost:3000/auth/complete")
	require.NoError(t, err)
	u, err := url.Parse(loginURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestNewOAuthService(t *testing.T) {
	f := newOAuthFixture()
	assert.NotNil(t, f.svc)
	assert.Len(t, f.svc.providers, 1)
	assert.Equal(t, []string{"http://localhost:3000"}, f.svc.allowedOrigins)
}

func TestOAuthService_Authorize(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		redirectTo   string
		expectedKind apperrors.Kind
	}{
		{name: "success", provider: oauth.ProviderGoogle, redirectTo: "http://localhost:3000/auth/complete"},
		{name: "unknown provider", provider: "myspace", redirectTo: "http://localhost:3000/", expectedKind: apperrors.KindValidation},
		{name: "foreign origin", provider: oauth.ProviderGoogle, redirectTo: "https://evil.example/steal", expectedKind: apperrors.KindValidation},
		{name: "relative redirect", provider: oauth.ProviderGoogle, redirectTo: "/auth/complete", expectedKind: apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthFixture()

			loginURL, err := f.svc.Authorize(context.Background(), tt.provider, tt.redirectTo)

			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, apperrors.KindOf(err))
				assert.Empty(t, f.stateStore.values)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, loginURL, "state=")
			assert.Len(t, f.stateStore.values, 1)
		})
	}
}

func TestOAuthService_CallbackAndExchange(t *testing.T) {
	t.Run("new user is created and linked", func(t *testing.T) {
		f := newOAuthFixture()
		state := f.authorize(t)

		redirect, err := f.svc.Callback(context.Background(), state, "provider-code", "")
		require.NoError(t, err)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		assert.Equal(t, "localhost:3000", u.Host)
		code := u.Query().Get("code")
		require.NotEmpty(t, code)

		require.Len(t, f.userRepo.users, 1)
		assert.Equal(t, "karim@example.com", *f.userRepo.users[0].Email)
		require.Len(t, f.identityRepo.links, 1)
		assert.Equal(t, "g-42", f.identityRepo.links[0].ProviderUserID)

		session, err := f.svc.Exchange(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, "Karim", session.User.DisplayName)
		assert.Equal(t, []string{oauth.ProviderGoogle}, f.metrics.signIns)

		// One-time codes cannot be replayed
		_, err = f.svc.Exchange(context.Background(), code)
		assert.Equal(t, apperrors.KindAuthRequired, apperrors.KindOf(err))
	})

	t.Run("existing email account is linked", func(t *testing.T) {
		f := newOAuthFixture()
		f.userRepo.users = []*models.User{{ID: 7, Email: strPtr("karim@example.com"), DisplayName: "K"}}
		state := f.authorize(t)

		_, err := f.svc.Callback(context.Background(), state, "provider-code", "")
		require.NoError(t, err)
		assert.Len(t, f.userRepo.users, 1)
		require.Len(t, f.identityRepo.links, 1)
		assert.Equal(t, 7, f.identityRepo.links[0].UserID)
	})

	t.Run("state is single use", func(t *testing.T) {
		f := newOAuthFixture()
		state := f.authorize(t)

		_, err := f.svc.Callback(context.Background(), state, "provider-code", "")
		require.NoError(t, err)
		_, err = f.svc.Callback(context.Background(), state, "provider-code", "")
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("user declined consent", func(t *testing.T) {
		f := newOAuthFixture()
		state := f.authorize(t)

		redirect, err := f.svc.Callback(context.Background(), state, "", "access_denied")
		require.NoError(t, err)
		assert.Contains(t, redirect, "error=access_denied")
		assert.Empty(t, f.userRepo.users)
	})

	t.Run("provider exchange fails", func(t *testing.T) {
		f := newOAuthFixture()
		f.provider.err = errors.New("token endpoint down")
		state := f.authorize(t)

		redirect, err := f.svc.Callback(context.Background(), state, "provider-code", "")
		require.NoError(t, err)
		assert.Contains(t, redirect, "error=server_error")
	})
}
