package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/oauth"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/security"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	oauthStateTTL    = 10 * time.Minute
	oauthExchangeTTL = time.Minute
)

// UserIdentityRepository is the interface that wraps methods for UserIdentity table data access
type UserIdentityRepository interface {
	// Method GetUserID returns the user linked to a provider account.
	//
	// If the account is not linked, repositories.ErrNotFound will be returned.
	GetUserID(ctx context.Context, provider, providerUserID string) (int, error)
	// Method Create links a provider account to a user.
	//
	// If the account is already linked, repositories.ErrDuplicate will be returned.
	Create(ctx context.Context, identity *models.UserIdentity) error
}

// OneTimeStore is the interface that wraps short-lived values that can be read once
type OneTimeStore interface {
	// Method Put stores value under key until ttl elapses.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	// Method Take reads and deletes the value under key into dest.
	//
	// If the key is unknown, expired or already taken, repositories.ErrNotFound will be returned.
	Take(ctx context.Context, key string, dest any) error
}

// oauthState is what the API remembers between authorize and callback
type oauthState struct {
	Provider   string `json:"provider"`
	RedirectTo string `json:"redirect_to"`
}

// oauthExchange is what a one-time code stands for
type oauthExchange struct {
	UserID   int    `json:"user_id"`
	Provider string `json:"provider"`
}

// oauthService implements OAuthService
type oauthService struct {
	providers      map[string]oauth.Provider
	stateStore     OneTimeStore
	exchangeStore  OneTimeStore
	userRepo       UserRepository
	identityRepo   UserIdentityRepository
	issuer         *SessionIssuer
	sanitizer      security.TextSanitizer
	metrics        metrics.MetricsCollector
	logger         *zap.Logger
	allowedOrigins []string
}

// NewOAuthService creates a new OAuth service.
// allowedOrigins limits where a callback may send the browser ("http://localhost:3000").
func NewOAuthService(
	providers map[string]oauth.Provider,
	stateStore OneTimeStore,
	exchangeStore OneTimeStore,
	userRepo UserRepository,
	identityRepo UserIdentityRepository,
	issuer *SessionIssuer,
	sanitizer security.TextSanitizer,
	metrics metrics.MetricsCollector,
	logger *zap.Logger,
	allowedOrigins []string,
) *oauthService {
	return &oauthService{
		providers:      providers,
		stateStore:     stateStore,
		exchangeStore:  exchangeStore,
		userRepo:       userRepo,
		identityRepo:   identityRepo,
		issuer:         issuer,
		sanitizer:      sanitizer,
		metrics:        metrics,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// Authorize starts a provider sign-in and returns the consent page URL
func (s *oauthService) Authorize(ctx context.Context, provider, redirectTo string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", apperrors.New(apperrors.KindValidation, fmt.Sprintf("unsupported provider %q", provider))
	}
	if !s.redirectAllowed(redirectTo) {
		return "", apperrors.New(apperrors.KindValidation, "redirect_to is not an allowed origin")
	}

	state := uuid.New().String()
	if err := s.stateStore.Put(ctx, state, oauthState{Provider: provider, RedirectTo: redirectTo}, oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return p.GetLoginURL(state), nil
}

// Callback completes a provider sign-in and returns where to send the browser.
// On success the redirect carries a one-time code the site exchanges for a session.
func (s *oauthService) Callback(ctx context.Context, state, code, providerError string) (string, error) {
	var st oauthState
	if err := s.stateStore.Take(ctx, state, &st); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperrors.New(apperrors.KindValidation, "invalid or expired sign-in attempt")
		}
		return "", err
	}

	if providerError != "" || code == "" {
		s.logger.Info("oauth sign-in declined", zap.String("provider", st.Provider), zap.String("error", providerError))
		return withQuery(st.RedirectTo, "error", "access_denied"), nil
	}

	p, ok := s.providers[st.Provider]
	if !ok {
		return "", apperrors.New(apperrors.KindValidation, fmt.Sprintf("unsupported provider %q", st.Provider))
	}

	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error("failed to exchange oauth code", zap.String("provider", st.Provider), zap.Error(err))
		return withQuery(st.RedirectTo, "error", "server_error"), nil
	}

	user, err := s.resolveUser(ctx, info)
	if err != nil {
		return "", err
	}

	exchangeCode := uuid.New().String()
	if err := s.exchangeStore.Put(ctx, exchangeCode, oauthExchange{UserID: user.ID, Provider: st.Provider}, oauthExchangeTTL); err != nil {
		return "", fmt.Errorf("failed to store exchange code: %w", err)
	}

	return withQuery(st.RedirectTo, "code", exchangeCode), nil
}

// Exchange trades a one-time code for a session
func (s *oauthService) Exchange(ctx context.Context, code string) (*models.Session, error) {
	var ex oauthExchange
	if err := s.exchangeStore.Take(ctx, code, &ex); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.New(apperrors.KindAuthRequired, "invalid or expired sign-in code")
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, ex.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindAuthRequired, "account no longer exists")
	}
	if err != nil {
		return nil, err
	}

	session, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignIn(ex.Provider)
	return session, nil
}

// resolveUser finds the user linked to a provider account.
// Unlinked accounts are linked to the user with the same email, or to a new user.
func (s *oauthService) resolveUser(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	userID, err := s.identityRepo.GetUserID(ctx, info.Provider, info.ProviderUserID)
	if err == nil {
		return s.userRepo.GetByID(ctx, userID)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	var user *models.User
	if email != "" {
		user, err = s.userRepo.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	if user == nil {
		user = &models.User{DisplayName: s.sanitizer.Sanitize(info.Name)}
		if email != "" {
			user.Email = &email
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
	}

	link := &models.UserIdentity{UserID: user.ID, Provider: info.Provider, ProviderUserID: info.ProviderUserID}
	if err := s.identityRepo.Create(ctx, link); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return nil, fmt.Errorf("failed to link oauth identity: %w", err)
	}

	return user, nil
}

// redirectAllowed accepts absolute http(s) URLs on an allowed origin
func (s *oauthService) redirectAllowed(redirectTo string) bool {
	u, err := url.Parse(redirectTo)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return slices.Contains(s.allowedOrigins, u.Scheme+"://"+u.Host)
}

// withQuery returns rawURL with key=value added to its query
func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
