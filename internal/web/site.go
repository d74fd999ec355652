// Package web is the server-rendered community site.
// Every page talks to the Remote Data Service through internal/remote on behalf of one browser,
// whose tokens live in HttpOnly cookies.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/core"
	loggerMiddleware "github.com/gbroads/roadstatus/internal/logger/middleware"
	"github.com/gbroads/roadstatus/internal/middlewares"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/remote"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// defaultMaxRequestSize leaves room for an 8 MiB photo plus the form fields
const defaultMaxRequestSize = 9 << 20

// Options configures a Site
type Options struct {
	// Remote is copied into the client created for every request; its HTTPClient is shared
	Remote remote.Options
	// PublicOrigin is the origin browsers use to reach the site, e.g. https://roads.example.pk
	PublicOrigin   string
	RedirectDelay  time.Duration
	CookieSecure   bool
	PhotoBucket    string
	MaxRequestSize int64
}

// Site serves the community pages
type Site struct {
	opts     Options
	renderer *renderer
	logger   *zap.Logger
}

// NewSite parses the page templates and prepares the shared API transport
func NewSite(opts Options, logger *zap.Logger) (*Site, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if opts.Remote.HTTPClient == nil {
		opts.Remote.HTTPClient = &http.Client{}
	}
	if opts.Remote.Logger == nil {
		opts.Remote.Logger = logger
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = core.DefaultRedirectDelay
	}
	if opts.PhotoBucket == "" {
		opts.PhotoBucket = core.DefaultPhotoBucket
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = defaultMaxRequestSize
	}
	opts.PublicOrigin = strings.TrimSuffix(opts.PublicOrigin, "/")

	return &Site{opts: opts, renderer: r, logger: logger}, nil
}

// Routes returns the router serving every page
func (s *Site) Routes() (http.Handler, error) {
	static, err := staticFileSystem()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(s.logger))
	r.Use(middlewares.RecoveryMiddleware(s.logger))
	r.Use(chimiddleware.Compress(5, "text/html", "text/css"))
	r.Use(securityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static)))

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequestSizeLimitMiddleware(s.opts.MaxRequestSize))
		r.Use(csrfMiddleware(s.opts.CookieSecure, s.logger))

		r.Get(core.HomePath, s.home)

		r.Get(core.LoginPath, s.loginPage)
		r.Post(core.LoginPath, s.loginWithPassword)
		r.Post(core.LoginPath+"/provider", s.loginWithProvider)
		r.Post(core.LoginPath+"/otp", s.sendOTP)
		r.Post(core.LoginPath+"/otp/verify", s.verifyOTP)
		r.Get(core.SignupPath, s.signupPage)
		r.Post(core.SignupPath, s.signup)
		r.Post("/logout", s.logout)

		r.Get(core.ReportsPath, s.myReports)
		r.Get(core.ReportsPath+"/export.pdf", s.exportReports)
		r.Get(core.ReportsPath+"/{id}", s.reportForm)
		r.Post(core.ReportsPath+"/{id}", s.submitReport)
		r.Post(core.ReportsPath+"/{id}/status", s.updateReportStatus)

		r.NotFound(s.notFound)
	})

	return r, nil
}

// basePage is the data every page template receives
type basePage struct {
	Title       string
	CurrentPath string
	CSRFToken   string
	Session     core.SessionState
	Greeting    string
	Notice      string
	Error       string
	Refresh     *refresh
}

// refresh is a delayed client-side navigation
type refresh struct {
	URL     string
	Seconds int
}

func newRefresh(redirect core.Redirect) *refresh {
	seconds := int(redirect.Delay.Round(time.Second) / time.Second)
	return &refresh{URL: redirect.Path, Seconds: seconds}
}

type errorPage struct {
	basePage
	Heading string
	Message string
}

var noticeMessages = map[string]string{
	"account_created": "Account created. Sign in to continue.",
	"signed_out":      "You have been signed out.",
	"report_updated":  "Report status updated.",
}

var errorMessages = map[string]string{
	"access_denied":        "Sign-in was cancelled.",
	"server_error":         "Sign-in failed. Please try again.",
	"exchange_failed":      "Sign-in failed. Please try again.",
	"provider_unavailable": "That sign-in option is not available right now.",
	"forbidden":            "Only admins can moderate reports.",
	"update_failed":        "Couldn't update the report. Please try again.",
	"invalid_status":       "Reports can only be marked verified or incorrect.",
}

// pageContext is the per-request view of one browser's session
type pageContext struct {
	site     *Site
	w        http.ResponseWriter
	r        *http.Request
	client   *remote.Client
	session  *core.SessionHolder
	restored *models.Session
	flushed  bool
}

func (s *Site) begin(w http.ResponseWriter, r *http.Request) *pageContext {
	client := remote.New(s.opts.Remote)
	restored := sessionFromCookies(r)
	if restored != nil {
		client.Auth.SetSession(restored)
	}

	session := core.NewSessionHolder(client.Auth, s.logger)
	session.Start(r.Context())

	return &pageContext{site: s, w: w, r: r, client: client, session: session, restored: restored}
}

func (pc *pageContext) close() {
	pc.session.Close()
}

// state waits for the identity; sign-in handlers call it before touching the session
func (pc *pageContext) state() core.SessionState {
	state, err := pc.session.WaitReady(pc.r.Context())
	if err != nil {
		pc.site.logger.Debug("session not ready", zap.Error(err))
	}
	return state
}

// flushCookies writes changed tokens back to the browser, once, before the response starts
func (pc *pageContext) flushCookies() {
	if pc.flushed {
		return
	}
	pc.flushed = true

	secure := pc.site.opts.CookieSecure
	current := pc.client.Auth.Session()
	switch {
	case current == nil:
		if pc.restored != nil {
			clearSessionCookies(pc.w, secure)
		}
	case pc.restored == nil ||
		current.AccessToken != pc.restored.AccessToken ||
		current.RefreshToken != pc.restored.RefreshToken:
		setSessionCookies(pc.w, current, secure)
	}
}

func (pc *pageContext) base(title string) basePage {
	state := pc.session.State()
	q := pc.r.URL.Query()
	return basePage{
		Title:       title,
		CurrentPath: pc.r.URL.RequestURI(),
		CSRFToken:   csrfToken(pc.r.Context()),
		Session:     state,
		Greeting:    state.Identity.Greeting(),
		Notice:      noticeMessages[q.Get("notice")],
		Error:       errorMessages[q.Get("error")],
	}
}

func (pc *pageContext) render(status int, page string, data any) {
	pc.flushCookies()
	if err := pc.site.renderer.render(pc.w, status, page, data); err != nil {
		pc.site.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(pc.w, "render failure", http.StatusInternalServerError)
	}
}

func (pc *pageContext) redirect(target string) {
	pc.flushCookies()
	http.Redirect(pc.w, pc.r, target, http.StatusSeeOther)
}

// redirectWithMessage redirects to a local target carrying a notice or error code
func (pc *pageContext) redirectWithMessage(target, key, code string) {
	parsed, err := url.Parse(core.SafeNext(target))
	if err != nil {
		pc.redirect(core.HomePath)
		return
	}
	query := parsed.Query()
	query.Del("error")
	query.Del("notice")
	query.Set(key, code)
	parsed.RawQuery = query.Encode()
	pc.redirect(parsed.RequestURI())
}

// fail renders the error page for err, or sends the browser to login when it needs a session
func (pc *pageContext) fail(err error, fallback string) {
	var loginErr *core.LoginRequiredError
	if errors.As(err, &loginErr) {
		pc.redirect(loginErr.LoginPath())
		return
	}

	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		pc.site.logger.Error(fallback,
			zap.String("method", pc.r.Method),
			zap.String("path", pc.r.URL.Path),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err),
		)
	}

	heading := "Something went wrong"
	switch status {
	case http.StatusNotFound:
		heading = "Not found"
	case http.StatusForbidden:
		heading = "Not allowed"
	}
	pc.render(status, pageError, errorPage{
		basePage: pc.base(heading),
		Heading:  heading,
		Message:  apperrors.Message(err, fallback),
	})
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	pc := s.begin(w, r)
	defer pc.close()
	pc.state()
	pc.fail(apperrors.New(apperrors.KindNotFound, "We couldn't find that page."), "page not found")
}

// statusForError maps an error kind to the status of the page that shows it
func statusForError(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindAuthRequired:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindTimeout:
		return http.StatusGatewayTimeout
	case apperrors.KindRead, apperrors.KindWrite, apperrors.KindUpload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// metaRefreshNavigator backs the core redirect timers on the server.
// Pages render pending redirects as meta refresh and close their flows before returning,
// so a timer that still fires has no browser to move.
type metaRefreshNavigator struct {
	logger *zap.Logger
}

func (n metaRefreshNavigator) Navigate(path string) {
	n.logger.Debug("redirect fired after the page was served", zap.String("path", path))
}
