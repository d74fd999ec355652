package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/core"
	"go.uber.org/zap"
)

var signInProviders = map[string]bool{"google": true, "facebook": true}

type loginPage struct {
	basePage
	Next      string
	Email     string
	Phone     string
	OTPSent   bool
	SignupURL string
}

type signupPage struct {
	basePage
	Next     string
	FullName string
	Email    string
	LoginURL string
}

func (pc *pageContext) loginPage(next string) loginPage {
	signupURL := core.SignupPath
	if next != core.HomePath {
		signupURL += "?next=" + url.QueryEscape(next)
	}
	return loginPage{basePage: pc.base("Sign in"), Next: next, SignupURL: signupURL}
}

func formNext(r *http.Request) string {
	return core.SafeNext(r.FormValue("next"))
}

// loginURL is the login page, carrying next only when it leads somewhere other than home
func loginURL(next string) string {
	if next == core.HomePath {
		return core.LoginPath
	}
	return core.LoginRedirect(next)
}

func (s *Site) loginPage(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()

	next := formNext(r)
	if pc.state().SignedIn() {
		pc.redirect(next)
		return
	}
	pc.render(http.StatusOK, pageLogin, pc.loginPage(next))
}

func (s *Site) loginWithPassword(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	next := formNext(r)
	email := strings.TrimSpace(r.FormValue("email"))
	if _, err := pc.client.Auth.SignInWithPassword(r.Context(), email, r.FormValue("password")); err != nil {
		page := pc.loginPage(next)
		page.Email = email
		page.Error = signInMessage(err)
		s.logger.Info("password sign-in failed", zap.String("kind", string(apperrors.KindOf(err))))
		pc.render(statusForError(err), pageLogin, page)
		return
	}
	pc.redirect(next)
}

// loginWithProvider sends the browser to the provider consent page.
// The provider flow comes back to the home page, which exchanges the code.
func (s *Site) loginWithProvider(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	next := formNext(r)
	provider := r.FormValue("provider")
	if !signInProviders[provider] {
		pc.redirectWithMessage(loginURL(next), "error", "provider_unavailable")
		return
	}

	returnTo := s.opts.PublicOrigin + core.HomePath
	if next != core.HomePath {
		returnTo += "?next=" + url.QueryEscape(next)
	}
	location, err := pc.client.Auth.SignInWithProvider(r.Context(), provider, returnTo)
	if err != nil {
		s.logger.Warn("failed to start provider sign-in", zap.String("provider", provider), zap.Error(err))
		pc.redirectWithMessage(loginURL(next), "error", "provider_unavailable")
		return
	}

	pc.flushCookies()
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Site) sendOTP(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	page := pc.loginPage(formNext(r))
	page.Phone = strings.TrimSpace(r.FormValue("phone"))
	if err := pc.client.Auth.SendOTP(r.Context(), page.Phone); err != nil {
		page.Error = apperrors.Message(err, "Couldn't send a code right now. Please try again.")
		pc.render(statusForError(err), pageLogin, page)
		return
	}
	page.OTPSent = true
	page.Notice = "We sent a code to your phone."
	pc.render(http.StatusOK, pageLogin, page)
}

func (s *Site) verifyOTP(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	next := formNext(r)
	phone := strings.TrimSpace(r.FormValue("phone"))
	if _, err := pc.client.Auth.VerifyOTP(r.Context(), phone, strings.TrimSpace(r.FormValue("code"))); err != nil {
		page := pc.loginPage(next)
		page.Phone = phone
		page.OTPSent = true
		page.Error = apperrors.Message(err, "That code didn't work. Please try again.")
		pc.render(statusForError(err), pageLogin, page)
		return
	}
	pc.redirect(next)
}

func (s *Site) signupPage(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()

	next := formNext(r)
	if pc.state().SignedIn() {
		pc.redirect(next)
		return
	}
	pc.render(http.StatusOK, pageSignup, signupPage{
		basePage: pc.base("Create an account"),
		Next:     next,
		LoginURL: loginURL(next),
	})
}

// signup creates the account and sends the user to sign in; it does not sign them in
func (s *Site) signup(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	next := formNext(r)
	page := signupPage{
		basePage: pc.base("Create an account"),
		Next:     next,
		FullName: strings.TrimSpace(r.FormValue("full_name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		LoginURL: loginURL(next),
	}

	password := r.FormValue("password")
	if password != r.FormValue("confirm_password") {
		page.Error = "Passwords do not match."
		pc.render(http.StatusUnprocessableEntity, pageSignup, page)
		return
	}

	if _, err := pc.client.Auth.SignUp(r.Context(), page.Email, password, page.FullName); err != nil {
		page.Error = apperrors.Message(err, "Couldn't create your account right now. Please try again.")
		pc.render(statusForError(err), pageSignup, page)
		return
	}
	pc.redirectWithMessage(loginURL(next), "notice", "account_created")
}

// logout always ends the local session, even when the service can't be reached
func (s *Site) logout(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()

	if err := pc.session.SignOut(r.Context()); err != nil {
		s.logger.Warn("sign-out did not reach the service", zap.Error(err))
	}
	pc.redirectWithMessage(core.HomePath, "notice", "signed_out")
}

func signInMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindAuthRequired, apperrors.KindValidation:
		return "Invalid email or password."
	case apperrors.KindRateLimited:
		return "Too many attempts. Please wait a moment and try again."
	default:
		return "Couldn't sign in right now. Please try again."
	}
}
