// Package handler contains the HTTP handlers: server-rendered pages for
// the sign-in flow and landings, and JSON APIs for quotes and gelar posts.
//
// Handlers parse the request, call a service, and write the response.
// They hold no business rules.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"golang.org/x/text/language"

	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/i18n"
	"github.com/jogjaantibully/kanal/internal/model"
)

// Page names, one template file each.
const (
	pageSignIn    = "signin"
	pageChat      = "ruang-bincang"
	pageDashboard = "dashboard-admin"
)

// pageData is everything a page template can read. Pages ignore the
// fields they do not use.
type pageData struct {
	Title       string
	Lang        string
	Message     string
	MessageKind string // "error" or "success"
	Principal   *auth.Principal

	// sign-in pages
	Entry          string
	Providers      []string
	ButtonLabel    string
	CaptchaSiteKey string

	// landings
	Profile *model.UserProfile
	Posts   []model.GelarPost
	Quotes  []model.Quote
}

// Renderer executes page templates. Each page is parsed once at startup
// together with base.html, so pages can share the layout and still define
// their own "content" block.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageSignIn, pageChat, pageDashboard} {
		tmpl, err := template.ParseFS(fsys, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// render writes a page. The template runs into a buffer first so a
// template error still produces a clean 500 instead of half a page.
func (rd *Renderer) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("template execution failed",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageLanguage resolves the visitor's language and persists an explicit
// ?lang= choice.
func pageLanguage(w http.ResponseWriter, r *http.Request) language.Tag {
	tag, persist := i18n.ResolveTag(r)
	if persist {
		i18n.SetLanguageCookie(w, tag)
	}
	return tag
}
