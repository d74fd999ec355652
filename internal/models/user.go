package models

import (
	"strings"
	"time"
)

// User represents an account of the Remote Data Service
type User struct {
	ID           int       `json:"id"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	CreatedAt    time.Time `json:"created_at"`
}

// EmailOrEmpty returns the email or "" for phone-only accounts
func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// UserToken represents a refresh token for a user
type UserToken struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Token  string `json:"token"`
}

// UserIdentity links an OAuth provider account to a user
type UserIdentity struct {
	ID             int    `json:"id"`
	UserID         int    `json:"user_id"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
}

// Identity is the public view of the signed-in user
type Identity struct {
	ID          int    `json:"id"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
}

// Greeting returns the name used to greet the user, falling back to "there"
func (i *Identity) Greeting() string {
	if i == nil || strings.TrimSpace(i.DisplayName) == "" {
		return "there"
	}
	return i.DisplayName
}

// Session is returned by every sign-in operation
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *Identity `json:"user"`
}

// SignUpRequest represents a sign-up with email and password
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// PasswordSignInRequest represents a sign-in with email and password
type PasswordSignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OTPRequest asks for a one-time password to be sent to a phone
type OTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// VerifyOTPRequest verifies a phone one-time password
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=10"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ExchangeRequest trades a one-time OAuth code for a session
type ExchangeRequest struct {
	Code string `json:"code" validate:"required"`
}

// AuthEvent names a change of the signed-in identity
type AuthEvent string

// AuthEvent constants
const (
	AuthEventSignedIn       AuthEvent = "signed_in"
	AuthEventSignedOut      AuthEvent = "signed_out"
	AuthEventTokenRefreshed AuthEvent = "token_refreshed"
)

// IdentityListener receives identity-change events; identity is nil after sign-out
type IdentityListener func(event AuthEvent, identity *Identity)
