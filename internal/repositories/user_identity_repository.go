package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gbroads/roadstatus/internal/models"
)

// userIdentityRepository implements UserIdentityRepository
type userIdentityRepository struct {
	db *sql.DB
}

// NewUserIdentityRepository creates a new OAuth identity repository
func NewUserIdentityRepository(db *sql.DB) *userIdentityRepository {
	return &userIdentityRepository{db: db}
}

// GetUserID returns the user linked to a provider account
func (r *userIdentityRepository) GetUserID(ctx context.Context, provider, providerUserID string) (int, error) {
	query := `
		SELECT user_id
		FROM user_identities
		WHERE provider = ? AND provider_user_id = ?
		LIMIT 1
	`

	var userID int
	err := r.db.QueryRowContext(ctx, query, provider, providerUserID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user identity: %w", err)
	}
	return userID, nil
}

// Create links a provider account to a user
func (r *userIdentityRepository) Create(ctx context.Context, identity *models.UserIdentity) error {
	query := `
		INSERT INTO user_identities (user_id, provider, provider_user_id)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, identity.UserID, identity.Provider, identity.ProviderUserID)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user identity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	identity.ID = int(id)
	return nil
}
