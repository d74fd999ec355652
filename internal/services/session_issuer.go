package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gbroads/roadstatus/internal/auth/service"
	"github.com/gbroads/roadstatus/internal/models"
)

// UserTokenRepository is the interface that wraps methods for UserToken table data access
type UserTokenRepository interface {
	// Method Create inserts a new refresh token into the database.
	//
	// "userToken" parameter is the token to store.
	//
	// If some error occurs during token creation, the error will be returned.
	Create(ctx context.Context, userToken *models.UserToken) error
	// Method GetByToken retrieves a refresh token record by token string.
	//
	// If the token does not exist, repositories.ErrNotFound will be returned together with "nil" value.
	GetByToken(ctx context.Context, token string) (*models.UserToken, error)
	// Method UpdateToken replaces oldToken with newToken for the user.
	//
	// If no such token belongs to the user, repositories.ErrNotFound will be returned.
	UpdateToken(ctx context.Context, oldToken, newToken string, userID int) error
	// Method DeleteByToken deletes a refresh token. Deleting an unknown token is not an error.
	DeleteByToken(ctx context.Context, token string) error
	// Method DeleteByUser deletes every refresh token of a user.
	DeleteByUser(ctx context.Context, userID int) error
}

// SessionIssuer turns an authenticated user into a session.
// It is shared by every sign-in method so the admin claim is resolved in one place.
type SessionIssuer struct {
	tokenGenerator *service.TokenGenerator
	userTokenRepo  UserTokenRepository
	adminSuffix    string
}

// NewSessionIssuer creates a SessionIssuer.
// adminSuffix is the email domain suffix that grants the admin claim; empty disables admins.
func NewSessionIssuer(tokenGenerator *service.TokenGenerator, userTokenRepo UserTokenRepository, adminSuffix string) *SessionIssuer {
	return &SessionIssuer{
		tokenGenerator: tokenGenerator,
		userTokenRepo:  userTokenRepo,
		adminSuffix:    strings.ToLower(strings.TrimSpace(adminSuffix)),
	}
}

// IsAdminEmail reports whether email ends with the admin domain suffix
func (i *SessionIssuer) IsAdminEmail(email string) bool {
	if i.adminSuffix == "" || email == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), i.adminSuffix)
}

// Identity builds the public identity of a user
func (i *SessionIssuer) Identity(user *models.User) *models.Identity {
	identity := &models.Identity{
		ID:          user.ID,
		Email:       user.EmailOrEmpty(),
		DisplayName: user.DisplayName,
		IsAdmin:     i.IsAdminEmail(user.EmailOrEmpty()),
	}
	if user.Phone != nil {
		identity.Phone = *user.Phone
	}
	return identity
}

// Issue generates and saves a token pair for user
func (i *SessionIssuer) Issue(ctx context.Context, user *models.User) (*models.Session, error) {
	identity := i.Identity(user)

	accessToken, refreshToken, err := i.tokenGenerator.GenerateTokens(service.Claims{
		UserID:  user.ID,
		Email:   identity.Email,
		IsAdmin: identity.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := i.userTokenRepo.Create(ctx, &models.UserToken{UserID: user.ID, Token: refreshToken}); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &models.Session{AccessToken: accessToken, RefreshToken: refreshToken, User: identity}, nil
}
