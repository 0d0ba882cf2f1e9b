// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render renders the storefront's HTML pages from embedded
// html/template files.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olegiv/ocms-storefront/internal/filter"
	"github.com/olegiv/ocms-storefront/internal/model"
	"github.com/olegiv/ocms-storefront/internal/price"
	"github.com/olegiv/ocms-storefront/internal/session"
	"github.com/olegiv/ocms-storefront/internal/tagselect"
)

// blankLinesRegex matches runs of blank lines left behind by template actions.
var blankLinesRegex = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	markdown       goldmark.Markdown
	sanitizer      *bluemonday.Policy
	plainText      *bluemonday.Policy
	isDev          bool
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	IsDev          bool
}

// New creates a new Renderer with parsed templates. Every file under pages/
// becomes a template named "pages/<file>" with the base layout and all
// partials.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		markdown:       goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		sanitizer:      bluemonday.UGCPolicy(),
		plainText:      bluemonday.StrictPolicy(),
		isDev:          cfg.IsDev,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("getting pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	for _, page := range pages {
		name := "pages/" + strings.TrimSuffix(path.Base(page), ".html")

		files := append([]string{"layouts/base.html"}, partials...)
		files = append(files, page)

		tmpl, err := template.New("").Funcs(r.TemplateFuncs()).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return nil
}

// TemplateFuncs returns the functions available to every template.
func (r *Renderer) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatPrice": func(v float64) string {
			return price.Display(fmt.Sprintf("%.2f", v))
		},
		"displayPrice": func(p *string) string {
			if p == nil {
				return ""
			}
			return price.Format(*p)
		},
		"toggleTagQuery": toggleTagQuery,
		"hasTag":         hasTag,
		"clearQuery":     func(s filter.State) template.URL { return template.URL(s.Clear().QueryString()) },
		"excerpt":        r.Excerpt,
	}
}

// toggleTagQuery returns the query string after toggling tag in s.
func toggleTagQuery(s filter.State, tag string) template.URL {
	return template.URL(s.WithTags(tagselect.Toggle(s.Tags, tag)).QueryString())
}

func hasTag(s filter.State, tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Markdown renders source as sanitized HTML.
func (r *Renderer) Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes()))
}

// Excerpt renders source as markdown and returns at most length runes of
// its plain text, cut at a word break.
func (r *Renderer) Excerpt(source string, length int) string {
	text := html.UnescapeString(r.plainText.Sanitize(string(r.Markdown(source))))
	return truncateWords(strings.Join(strings.Fields(text), " "), length)
}

// truncateWords shortens s to at most length runes plus an ellipsis,
// dropping the word that would be split.
func truncateWords(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	cut := string(runes[:length])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Data        any
	User        *model.User
	Categories  []model.Category
	Search      string
	Flash       *session.Flash
	FormEmail   string
	State       template.JS
	CurrentYear int
	IsDev       bool
}

// Render renders a page template with the given status.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	data.IsDev = r.isDev
	if r.sessionManager != nil {
		data.Flash = session.PopFlash(req.Context(), r.sessionManager)
		if email := session.PopFormEmail(req.Context(), r.sessionManager); email != "" && data.FormEmail == "" {
			data.FormEmail = email
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(blankLinesRegex.ReplaceAll(buf.Bytes(), []byte("\n"))); err != nil {
		slog.DebugContext(req.Context(), "writing response", "template", name, "error", err)
	}
	return nil
}
