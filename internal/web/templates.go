package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
)

//go:embed templates/*.tmpl static/*
var assetsFS embed.FS

// Page templates, each rendered inside layout.tmpl
const (
	pageHome            = "home"
	pageLogin           = "login"
	pageSignup          = "signup"
	pageReportForm      = "report_form"
	pageReportSubmitted = "report_submitted"
	pageSigninRequired  = "signin_required"
	pageReports         = "reports"
	pageError           = "error"
)

var pages = []string{
	pageHome, pageLogin, pageSignup, pageReportForm,
	pageReportSubmitted, pageSigninRequired, pageReports, pageError,
}

var templateFuncs = template.FuncMap{
	"statusLabel": func(s models.RoadStatus) string {
		return s.Label()
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "unknown"
		}
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	},
}

// renderer holds one parsed template set per page
type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New("layout.tmpl").Funcs(templateFuncs).
			ParseFS(assetsFS, "templates/layout.tmpl", "templates/"+page+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// render executes page into a buffer first so a template error never leaves a half-written page
func (r *renderer) render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func staticFileSystem() (http.FileSystem, error) {
	sub, err := fs.Sub(assetsFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static fs: %w", err)
	}
	return http.FS(sub), nil
}
