package handlers

import (
	"context"
	"net/http"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/auth/middleware"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for email/password authentication.
type AuthService interface {
	// Method SignUp validates the request, creates an email account and returns its first session.
	//
	// If the email is already registered, a Conflict error will be returned together with "nil" value.
	SignUp(ctx context.Context, req *models.SignUpRequest) (*models.Session, error)
	// Method SignInWithPassword checks the credentials and returns a new session.
	//
	// Unknown emails and wrong passwords both return the same AuthRequired error.
	SignInWithPassword(ctx context.Context, req *models.PasswordSignInRequest) (*models.Session, error)
	// Method Refresh rotates a refresh token.
	//
	// If the token is unknown, expired or already rotated, an AuthRequired error will be returned.
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	// Method SignOut revokes one refresh token, or every token of the user when refreshToken is empty.
	SignOut(ctx context.Context, userID int, refreshToken string) error
	// Method CurrentIdentity returns the identity of a user.
	CurrentIdentity(ctx context.Context, userID int) (*models.Identity, error)
}

// OAuthService is the interface that wraps methods for provider sign-in.
type OAuthService interface {
	// Method Authorize returns the provider consent URL for a new sign-in attempt.
	//
	// "redirectTo" must be an absolute URL on an allowed origin.
	Authorize(ctx context.Context, provider, redirectTo string) (string, error)
	// Method Callback completes the attempt and returns where to send the browser.
	Callback(ctx context.Context, state, code, providerError string) (string, error)
	// Method Exchange trades the one-time code from the callback redirect for a session.
	Exchange(ctx context.Context, code string) (*models.Session, error)
}

// OTPService is the interface that wraps methods for phone sign-in.
type OTPService interface {
	// Method SendOTP texts a one-time code to the phone.
	//
	// Requests above the per-phone budget return a RateLimited error.
	SendOTP(ctx context.Context, req *models.OTPRequest) error
	// Method VerifyOTP checks the code and returns a session, creating the account on first use.
	VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.Session, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService  AuthService
	oauthService OAuthService
	otpService   OTPService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService AuthService,
	oauthService OAuthService,
	otpService OTPService,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		authService:  authService,
		oauthService: oauthService,
		otpService:   otpService,
	}
}

// RegisterRoutes registers the auth routes that require the API key
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/token", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/otp", h.SendOTP)
	r.Post("/auth/verify", h.VerifyOTP)
	r.Get("/auth/authorize", h.Authorize)
	r.Post("/auth/exchange", h.Exchange)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/auth/user", h.CurrentUser)
		r.Post("/auth/logout", h.SignOut)
	})
}

// RegisterPublicRoutes registers the provider callback, which browsers reach without the API key
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/auth/callback", h.Callback)
}

// SignUp handles POST /auth/signup
// @Summary Sign up
// @Description Create an email account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignUpRequest true "Sign-up request"
// @Success 201 {object} models.Session
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	session, err := h.authService.SignUp(r.Context(), &req)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to sign up")
		return
	}

	h.RespondJSON(w, http.StatusCreated, session)
}

// SignIn handles POST /auth/token
// @Summary Sign in with password
// @Description Authenticate an email account and return access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordSignInRequest true "Sign-in request"
// @Success 200 {object} models.Session
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Security ApiKeyAuth
// @Router /auth/token [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordSignInRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	session, err := h.authService.SignInWithPassword(r.Context(), &req)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to sign in")
		return
	}

	h.RespondJSON(w, http.StatusOK, session)
}

// Refresh handles POST /auth/refresh
// @Summary Refresh tokens
// @Description Rotate a refresh token and return a new session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh request"
// @Success 200 {object} models.Session
// @Failure 400 {object} ErrorResponse "Refresh token required"
// @Failure 401 {object} ErrorResponse "Invalid or expired refresh token"
// @Security ApiKeyAuth
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	session, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to refresh tokens")
		return
	}

	h.RespondJSON(w, http.StatusOK, session)
}

// SignOut handles POST /auth/logout
// @Summary Sign out
// @Description Revoke the given refresh token, or every session of the user when the body is empty
// @Tags auth
// @Accept json
// @Param request body models.RefreshRequest false "Refresh token to revoke"
// @Success 204
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, apperrors.KindAuthRequired, "authentication required")
		return
	}

	// The body is optional
	var req models.RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.RespondAppError(w, r, err, "invalid request body")
			return
		}
	}

	if err := h.authService.SignOut(r.Context(), userID, req.RefreshToken); err != nil {
		h.RespondAppError(w, r, err, "failed to sign out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser handles GET /auth/user
// @Summary Current identity
// @Description Return the identity behind the access token
// @Tags auth
// @Produce json
// @Success 200 {object} models.Identity
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /auth/user [get]
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, apperrors.KindAuthRequired, "authentication required")
		return
	}

	identity, err := h.authService.CurrentIdentity(r.Context(), userID)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to load identity")
		return
	}

	h.RespondJSON(w, http.StatusOK, identity)
}

// SendOTP handles POST /auth/otp
// @Summary Send phone code
// @Description Text a one-time sign-in code to a phone number
// @Tags auth
// @Accept json
// @Param request body models.OTPRequest true "Phone number in E.164 form"
// @Success 204
// @Failure 400 {object} ErrorResponse "Invalid phone number"
// @Failure 429 {object} ErrorResponse "Too many codes requested"
// @Security ApiKeyAuth
// @Router /auth/otp [post]
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.OTPRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	if err := h.otpService.SendOTP(r.Context(), &req); err != nil {
		h.RespondAppError(w, r, err, "failed to send code")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyOTP handles POST /auth/verify
// @Summary Verify phone code
// @Description Sign in with a phone one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyOTPRequest true "Phone and code"
// @Success 200 {object} models.Session
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 401 {object} ErrorResponse "Invalid or expired code"
// @Security ApiKeyAuth
// @Router /auth/verify [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}

	session, err := h.otpService.VerifyOTP(r.Context(), &req)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to verify code")
		return
	}

	h.RespondJSON(w, http.StatusOK, session)
}

// Authorize handles GET /auth/authorize
// @Summary Start provider sign-in
// @Description Redirect the browser to the provider consent page
// @Tags auth
// @Param provider query string true "google or facebook"
// @Param redirect_to query string true "Absolute URL the browser returns to"
// @Success 302
// @Failure 400 {object} ErrorResponse "Unsupported provider or redirect"
// @Security ApiKeyAuth
// @Router /auth/authorize [get]
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	redirectTo := r.URL.Query().Get("redirect_to")

	loginURL, err := h.oauthService.Authorize(r.Context(), provider, redirectTo)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to start sign-in")
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback handles GET /auth/callback
// @Summary Provider callback
// @Description Complete provider sign-in and redirect back with a one-time code
// @Tags auth
// @Param state query string true "Sign-in attempt state"
// @Param code query string false "Provider authorization code"
// @Param error query string false "Provider error"
// @Success 302
// @Failure 400 {object} ErrorResponse "Invalid or expired sign-in attempt"
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	redirectURL, err := h.oauthService.Callback(r.Context(), q.Get("state"), q.Get("code"), q.Get("error"))
	if err != nil {
		h.RespondAppError(w, r, err, "failed to complete sign-in")
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Exchange handles POST /auth/exchange
// @Summary Exchange sign-in code
// @Description Trade the one-time code from a provider sign-in for a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ExchangeRequest true "One-time code"
// @Success 200 {object} models.Session
// @Failure 401 {object} ErrorResponse "Invalid or expired code"
// @Security ApiKeyAuth
// @Router /auth/exchange [post]
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req models.ExchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondAppError(w, r, err, "invalid request body")
		return
	}
	if req.Code == "" {
		h.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "code is required")
		return
	}

	session, err := h.oauthService.Exchange(r.Context(), req.Code)
	if err != nil {
		h.RespondAppError(w, r, err, "failed to exchange code")
		return
	}

	h.RespondJSON(w, http.StatusOK, session)
}
