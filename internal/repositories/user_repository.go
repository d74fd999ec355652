package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

const userSelect = `SELECT id, email, phone, display_name, password_hash, created_at FROM users`

// userRepository implements UserRepository
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func scanUser(s rowScanner) (*models.User, error) {
	user := &models.User{}
	var email, phone, passwordHash sql.NullString
	if err := s.Scan(&user.ID, &email, &phone, &user.DisplayName, &passwordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		user.Email = &email.String
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	user.PasswordHash = passwordHash.String
	return user, nil
}

// Create inserts a new user into the database
// ErrDuplicate is returned when the email or phone is already registered
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, phone, display_name, password_hash)
		VALUES (?, ?, ?, ?)
	`

	passwordHash := sql.NullString{String: user.PasswordHash, Valid: user.PasswordHash != ""}
	result, err := r.db.ExecContext(ctx, query, nullable(user.Email), nullable(user.Phone), user.DisplayName, passwordHash)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicate
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

// GetByID retrieves a user by id
func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetByPhone retrieves a user by phone number
func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, "phone", phone)
}

// getOne looks a user up by one of the unique columns above
func (r *userRepository) getOne(ctx context.Context, column string, value any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE `+column+` = ? LIMIT 1`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get user", zap.Error(err), zap.String("by", column))
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}
