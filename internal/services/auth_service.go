package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/security"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method Create inserts a new user into the database and sets its ID.
	//
	// If the email or phone is already registered, repositories.ErrDuplicate will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByID retrieves a user by ID.
	//
	// If the user does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method GetByEmail retrieves a user by email.
	//
	// If the user does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByPhone retrieves a user by phone number in E.164 form.
	//
	// If the user does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// errInvalidCredentials is shared by every password failure so callers cannot probe for accounts
var errInvalidCredentials = apperrors.New(apperrors.KindAuthRequired, "invalid email or password")

// authService implements AuthService
type authService struct {
	userRepo      UserRepository
	userTokenRepo UserTokenRepository
	issuer        *SessionIssuer
	tokenGen      *service.TokenGenerator
	sanitizer     security.TextSanitizer
	metrics       metrics.MetricsCollector
	logger        *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	userTokenRepo UserTokenRepository,
	issuer *SessionIssuer,
	tokenGen *service.TokenGenerator,
	sanitizer security.TextSanitizer,
	metrics metrics.MetricsCollector,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		issuer:        issuer,
		tokenGen:      tokenGen,
		sanitizer:     sanitizer,
		metrics:       metrics,
		logger:        logger,
	}
}

// SignUp creates an email account and signs it in
func (s *authService) SignUp(ctx context.Context, req *models.SignUpRequest) (*models.Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = s.sanitizer.Sanitize(req.DisplayName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.New(apperrors.KindConflict, "an account with this email already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        &req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(passwordHash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent sign-up for the same email
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.New(apperrors.KindConflict, "an account with this email already exists")
		}
		return nil, err
	}

	session, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignIn("signup")
	return session, nil
}

// SignInWithPassword authenticates an email account
func (s *authService) SignInWithPassword(ctx context.Context, req *models.PasswordSignInRequest) (*models.Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// Accounts created through OAuth or phone have no password
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	session, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignIn("password")
	return session, nil
}

// Refresh rotates a refresh token and issues a new session
//
// The token record lookup and the signature check do not depend on each other,
// so both run in parallel.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.New(apperrors.KindValidation, "refresh_token is required")
	}

	errorChan := make(chan error, 2)
	userTokenChan := make(chan *models.UserToken, 1)

	go func() {
		userToken, err := s.userTokenRepo.GetByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				err = apperrors.New(apperrors.KindAuthRequired, "invalid or expired refresh token")
			}
			userTokenChan <- nil
			errorChan <- err
			return
		}
		userTokenChan <- userToken
		errorChan <- nil
	}()

	go func() {
		if err := s.tokenGen.ValidateRefreshToken(refreshToken); err != nil {
			// Expired tokens are removed so they cannot pile up
			if delErr := s.userTokenRepo.DeleteByToken(ctx, refreshToken); delErr != nil {
				s.logger.Warn("failed to delete expired refresh token", zap.Error(delErr))
			}
			errorChan <- apperrors.Wrap(apperrors.KindAuthRequired, "invalid or expired refresh token", err)
			return
		}
		errorChan <- nil
	}()

	var firstErr error
	for range 2 {
		if err := <-errorChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	userToken := <-userTokenChan

	user, err := s.userRepo.GetByID(ctx, userToken.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindAuthRequired, "account no longer exists")
	}
	if err != nil {
		return nil, err
	}

	identity := s.issuer.Identity(user)
	accessToken, newRefreshToken, err := s.tokenGen.GenerateTokens(service.Claims{
		UserID:  user.ID,
		Email:   identity.Email,
		IsAdmin: identity.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.userTokenRepo.UpdateToken(ctx, refreshToken, newRefreshToken, userToken.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Rotated concurrently by another refresh with the same token
			return nil, apperrors.New(apperrors.KindAuthRequired, "invalid or expired refresh token")
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.metrics.RecordSignIn("refresh")
	return &models.Session{AccessToken: accessToken, RefreshToken: newRefreshToken, User: identity}, nil
}

// SignOut revokes the given refresh token, or every token of the user when none is given
func (s *authService) SignOut(ctx context.Context, userID int, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken != "" {
		return s.userTokenRepo.DeleteByToken(ctx, refreshToken)
	}
	return s.userTokenRepo.DeleteByUser(ctx, userID)
}

// CurrentIdentity returns the identity behind an access token
func (s *authService) CurrentIdentity(ctx context.Context, userID int) (*models.Identity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindAuthRequired, "account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return s.issuer.Identity(user), nil
}
