// Package oauth implements the Google and Facebook authorization code flows
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider names
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// UserInfo is the profile an OAuth provider returns for a signed-in account
type UserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// Provider is one OAuth 2.0 identity provider
type Provider interface {
	// GetLoginURL returns the provider consent page URL carrying state
	GetLoginURL(state string) string
	// ExchangeCode trades an authorization code for the account profile
	ExchangeCode(ctx context.Context, code string) (*UserInfo, error)
}

// Config holds one provider's client credentials and callback
// The endpoint URLs default to the provider's and are overridable in tests
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// tokenResponse is the common part of both providers' token endpoint responses
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// doJSON sends req and decodes a 200 response into dest
func doJSON(req *http.Request, dest any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
