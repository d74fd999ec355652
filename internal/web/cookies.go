package web

import (
	"net/http"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
)

const (
	accessTokenCookie  = "rs_access_token"
	refreshTokenCookie = "rs_refresh_token"
	sessionCookieTTL   = 30 * 24 * time.Hour
)

// sessionFromCookies restores the tokens of a browser, or nil when it has none
func sessionFromCookies(r *http.Request) *models.Session {
	var s models.Session
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		s.AccessToken = c.Value
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		s.RefreshToken = c.Value
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil
	}
	return &s
}

func setSessionCookies(w http.ResponseWriter, s *models.Session, secure bool) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, s.AccessToken, int(sessionCookieTTL.Seconds()), secure))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, s.RefreshToken, int(sessionCookieTTL.Seconds()), secure))
}

func clearSessionCookies(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, "", -1, secure))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, "", -1, secure))
}

func sessionCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
