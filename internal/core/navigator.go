// Package core holds the page-level state of the site: the signed-in session,
// the road catalog, report submission and report moderation.
// It talks to the Remote Data Service only through the interfaces below.
package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
)

// Page paths
const (
	HomePath    = "/"
	LoginPath   = "/login"
	SignupPath  = "/signup"
	ReportsPath = "/report"
)

// ReportPath returns the submission page of a road
func ReportPath(roadID int) string {
	return ReportsPath + "/" + strconv.Itoa(roadID)
}

// LoginRedirect returns the login page that sends the user on to next after sign-in
func LoginRedirect(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local path, otherwise the home page
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return HomePath
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return HomePath
	}
	return next
}

// LoginRequiredError is an AuthRequired error that knows where to send the user back
type LoginRequiredError struct {
	Next string
	Err  error
}

func newLoginRequired(next string) *LoginRequiredError {
	return &LoginRequiredError{
		Next: next,
		Err:  apperrors.New(apperrors.KindAuthRequired, "you must be signed in"),
	}
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("sign in required for %s", e.Next)
}

func (e *LoginRequiredError) Unwrap() error {
	return e.Err
}

// LoginPath returns the login page for this error
func (e *LoginRequiredError) LoginPath() string {
	return LoginRedirect(e.Next)
}

// Navigator moves the view to another page
type Navigator interface {
	Navigate(path string)
}

// Redirect is a navigation scheduled for later
type Redirect struct {
	Path  string
	Delay time.Duration
}

// timer is the part of *time.Timer a Redirector needs
type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Redirector schedules at most one delayed navigation and cancels it on Close
type Redirector struct {
	nav   Navigator
	after afterFunc

	mu      sync.Mutex
	pending *Redirect
	timer   timer
	closed  bool
}

// NewRedirector creates a redirector navigating through nav
func NewRedirector(nav Navigator) *Redirector {
	return &Redirector{nav: nav, after: realAfterFunc}
}

// Schedule replaces any pending redirect with one to path after delay
func (r *Redirector) Schedule(path string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}

	redirect := &Redirect{Path: path, Delay: delay}
	r.pending = redirect
	r.timer = r.after(delay, func() { r.fire(redirect) })
}

// Pending returns the scheduled redirect that has not fired yet
func (r *Redirector) Pending() (Redirect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Redirect{}, false
	}
	return *r.pending, true
}

// Cancel drops the pending redirect
func (r *Redirector) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Close cancels the pending redirect; nothing is scheduled afterwards
func (r *Redirector) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cancelLocked()
}

func (r *Redirector) cancelLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending = nil
}

// fire navigates unless the redirect was cancelled or replaced in the meantime
func (r *Redirector) fire(redirect *Redirect) {
	r.mu.Lock()
	if r.closed || r.pending != redirect {
		r.mu.Unlock()
		return
	}
	r.pending = nil
	r.timer = nil
	r.mu.Unlock()

	r.nav.Navigate(redirect.Path)
}
