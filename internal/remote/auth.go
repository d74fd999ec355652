package remote

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Auth keeps the session tokens of one browser and notifies listeners when the identity changes
type Auth struct {
	client *Client

	mu        sync.Mutex
	session   *models.Session
	listeners []listenerEntry
	nextID    int

	refreshGroup singleflight.Group
}

type listenerEntry struct {
	id int
	fn models.IdentityListener
}

// Session returns a copy of the current session, or nil when signed out
func (a *Auth) Session() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// SetSession restores a session persisted elsewhere without notifying listeners.
// A session with only a refresh token is kept and refreshed on first use.
func (a *Auth) SetSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == nil || (s.AccessToken == "" && s.RefreshToken == "") {
		a.session = nil
		return
	}
	restored := *s
	a.session = &restored
}

// OnIdentityChange registers fn for identity-change events and returns its unsubscribe func
func (a *Auth) OnIdentityChange(fn models.IdentityListener) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.listeners = append(a.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, l := range a.listeners {
				if l.id == id {
					a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// CurrentIdentity returns the signed-in identity, or nil when there is no valid session
func (a *Auth) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	current := a.Session()
	if current == nil {
		return nil, nil
	}
	if current.AccessToken == "" {
		if err := a.Refresh(ctx); err != nil {
			if apperrors.Is(err, apperrors.KindAuthRequired) {
				return nil, nil
			}
			return nil, err
		}
	}

	var identity models.Identity
	err := a.client.do(ctx, request{method: http.MethodGet, path: "/auth/user", authorized: true}, &identity)
	if apperrors.Is(err, apperrors.KindAuthRequired) {
		a.clearSession()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.session != nil {
		a.session.User = &identity
	}
	a.mu.Unlock()
	return &identity, nil
}

// SignInWithPassword signs in with email and password
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	body := models.PasswordSignInRequest{Email: email, Password: password}
	return a.signIn(ctx, request{method: http.MethodPost, path: "/auth/token", body: body})
}

// SignUp creates an email account; the caller signs in separately
func (a *Auth) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	body := models.SignUpRequest{Email: email, Password: password, DisplayName: displayName}

	var session models.Session
	if err := a.client.do(ctx, request{method: http.MethodPost, path: "/auth/signup", body: body}, &session); err != nil {
		return nil, err
	}
	return session.User, nil
}

// SignInWithProvider starts an OAuth sign-in and returns the provider consent URL
// The service redirects back to redirectTo with a one-time "code" for ExchangeCode
func (a *Auth) SignInWithProvider(ctx context.Context, provider, redirectTo string) (string, error) {
	query := url.Values{}
	query.Set("provider", provider)
	query.Set("redirect_to", redirectTo)

	resp, err := a.client.send(ctx, request{method: http.MethodGet, path: "/auth/authorize", query: query})
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusFound && resp.status != http.StatusSeeOther {
		return "", resp.err()
	}

	location := resp.header.Get("Location")
	if location == "" {
		return "", apperrors.New(apperrors.KindInternal, "provider sign-in is unavailable")
	}
	return location, nil
}

// ExchangeCode completes an OAuth sign-in
func (a *Auth) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	return a.signIn(ctx, request{method: http.MethodPost, path: "/auth/exchange", body: models.ExchangeRequest{Code: code}})
}

// SendOTP texts a one-time sign-in code to phone
func (a *Auth) SendOTP(ctx context.Context, phone string) error {
	return a.client.do(ctx, request{method: http.MethodPost, path: "/auth/otp", body: models.OTPRequest{Phone: phone}}, nil)
}

// VerifyOTP signs in with a phone code
func (a *Auth) VerifyOTP(ctx context.Context, phone, code string) (*models.Identity, error) {
	body := models.VerifyOTPRequest{Phone: phone, Code: code}
	return a.signIn(ctx, request{method: http.MethodPost, path: "/auth/verify", body: body})
}

// Refresh rotates the session tokens
// Concurrent callers share one refresh; a rejected refresh token signs the browser out
func (a *Auth) Refresh(ctx context.Context) error {
	_, err, _ := a.refreshGroup.Do("refresh", func() (any, error) {
		current := a.Session()
		if current == nil || current.RefreshToken == "" {
			return nil, apperrors.New(apperrors.KindAuthRequired, "session expired")
		}

		var session models.Session
		body := models.RefreshRequest{RefreshToken: current.RefreshToken}
		if err := a.client.do(ctx, request{method: http.MethodPost, path: "/auth/refresh", body: body}, &session); err != nil {
			if apperrors.Is(err, apperrors.KindAuthRequired) {
				a.clearSession()
			}
			return nil, err
		}

		a.setSession(&session, models.AuthEventTokenRefreshed)
		return nil, nil
	})
	return err
}

// SignOut revokes the session on the service and always clears it locally
// The returned error is informational; the client is signed out either way
func (a *Auth) SignOut(ctx context.Context) error {
	current := a.Session()
	if current == nil {
		return nil
	}

	body := models.RefreshRequest{RefreshToken: current.RefreshToken}
	err := a.client.do(ctx, request{method: http.MethodPost, path: "/auth/logout", body: body, authorized: true}, nil)
	if err != nil {
		a.client.logger.Warn("failed to revoke session", zap.Error(err))
	}

	a.clearSession()
	return err
}

func (a *Auth) signIn(ctx context.Context, req request) (*models.Identity, error) {
	var session models.Session
	if err := a.client.do(ctx, req, &session); err != nil {
		return nil, err
	}
	a.setSession(&session, models.AuthEventSignedIn)
	return session.User, nil
}

func (a *Auth) accessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *Auth) canRefresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.RefreshToken != ""
}

func (a *Auth) setSession(s *models.Session, event models.AuthEvent) {
	a.mu.Lock()
	if s.User == nil && a.session != nil {
		s.User = a.session.User
	}
	a.session = s
	a.mu.Unlock()

	a.emit(event, s.User)
}

// clearSession drops the session and notifies listeners if there was one
func (a *Auth) clearSession() {
	a.mu.Lock()
	hadSession := a.session != nil
	a.session = nil
	a.mu.Unlock()

	if hadSession {
		a.emit(models.AuthEventSignedOut, nil)
	}
}

// emit calls the listeners outside the lock so they may call back into Auth
func (a *Auth) emit(event models.AuthEvent, identity *models.Identity) {
	a.mu.Lock()
	listeners := make([]listenerEntry, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, l := range listeners {
		l.fn(event, identity)
	}
}
