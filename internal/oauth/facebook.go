package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	defaultFacebookAuthURL     = "https://www.facebook.com/v19.0/dialog/oauth"
	defaultFacebookTokenURL    = "https://graph.facebook.com/v19.0/oauth/access_token"
	defaultFacebookUserInfoURL = "https://graph.facebook.com/v19.0/me"
)

// FacebookProvider signs users in with Facebook
type FacebookProvider struct {
	config Config
}

// NewFacebookProvider creates a FacebookProvider, filling in the default endpoints
func NewFacebookProvider(config Config) *FacebookProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultFacebookAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultFacebookTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultFacebookUserInfoURL
	}
	return &FacebookProvider{config: config}
}

// GetLoginURL requests the email and public_profile permissions
func (p *FacebookProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"email,public_profile"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

type facebookUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ExchangeCode exchanges the code for an access token, then reads /me
// Facebook accounts registered by phone have no email
func (p *FacebookProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	params := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	var token tokenResponse
	if err := doJSON(req, &token); err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	query := url.Values{"fields": {"id,name,email"}}
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var info facebookUserInfo
	if err := doJSON(req, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &UserInfo{
		ProviderUserID: info.ID,
		Email:          info.Email,
		Name:           info.Name,
		Provider:       ProviderFacebook,
	}, nil
}

var _ Provider = (*FacebookProvider)(nil)
