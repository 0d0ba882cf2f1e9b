// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers for the storefront pages.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-storefront/internal/catalog"
	"github.com/olegiv/ocms-storefront/internal/filter"
	"github.com/olegiv/ocms-storefront/internal/middleware"
	"github.com/olegiv/ocms-storefront/internal/model"
	"github.com/olegiv/ocms-storefront/internal/price"
	"github.com/olegiv/ocms-storefront/internal/render"
	"github.com/olegiv/ocms-storefront/internal/rpc"
	"github.com/olegiv/ocms-storefront/internal/tagselect"
)

// Route paths.
const (
	RouteRoot    = "/"
	RouteSignIn  = "/sign-in"
	RouteSignUp  = "/sign-up"
	RouteSignOut = "/sign-out"
)

// Query parameters that are not part of the filter state.
const (
	paramCursor   = "cursor"
	paramTagPages = "tagPages"
)

const (
	// DefaultTagLimit is the number of tags shown per "load more" step.
	DefaultTagLimit = 10
	// maxTagPages caps how many tag pages one render fetches.
	maxTagPages = 10
)

// Storefront serves the catalog and account pages.
type Storefront struct {
	router    *rpc.Router
	assembler *catalog.Assembler
	renderer  *render.Renderer
	sm        *scs.SessionManager
	logger    *slog.Logger
	tagLimit  int
}

// Config holds the dependencies of a Storefront.
type Config struct {
	Router         *rpc.Router
	Assembler      *catalog.Assembler
	Renderer       *render.Renderer
	SessionManager *scs.SessionManager
	Logger         *slog.Logger
	TagLimit       int
}

// NewStorefront creates a Storefront.
func NewStorefront(cfg Config) *Storefront {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TagLimit <= 0 {
		cfg.TagLimit = DefaultTagLimit
	}
	return &Storefront{
		router:    cfg.Router,
		assembler: cfg.Assembler,
		renderer:  cfg.Renderer,
		sm:        cfg.SessionManager,
		logger:    cfg.Logger,
		tagLimit:  cfg.TagLimit,
	}
}

// Routes registers the page routes on r. Static paths take precedence over
// the category patterns.
func (h *Storefront) Routes(r chi.Router) {
	r.Get(RouteRoot, h.Home)
	r.Get(RouteSignIn, h.SignInForm)
	r.Post(RouteSignIn, h.SignIn)
	r.Get(RouteSignUp, h.SignUpForm)
	r.Post(RouteSignUp, h.SignUp)
	r.Post(RouteSignOut, h.SignOut)
	r.Get("/{category}", h.Category)
	r.Get("/{category}/{subcategory}", h.Category)
	r.NotFound(h.NotFound)
}

// ListingData is the template data of the home and category pages.
type ListingData struct {
	Category    *model.Category
	Subcategory *model.Category
	// BasePath is the page path that filter links are relative to.
	BasePath string
	Filters  filter.State
	Products model.Page[model.Product]
	// NextURL loads the following page of products, empty on the last page.
	NextURL string
	Tags    TagsView
}

// TagsView is the tag selector as rendered in the filter sidebar.
type TagsView struct {
	Tags    []model.Tag
	HasMore bool
	MoreURL string
	Failed  bool
	// RetryURL reloads the page asking for the same number of tag pages.
	RetryURL string
}

// ErrorData is the template data of the error page.
type ErrorData struct {
	Status    int
	Message   string
	Retryable bool
}

// Home handles GET /.
func (h *Storefront) Home(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, catalog.Route{}, RouteRoot)
}

// Category handles GET /{category} and GET /{category}/{subcategory}.
func (h *Storefront) Category(w http.ResponseWriter, r *http.Request) {
	route := catalog.Route{
		Category:    chi.URLParam(r, "category"),
		Subcategory: chi.URLParam(r, "subcategory"),
	}
	base := "/" + url.PathEscape(route.Category)
	if route.Subcategory != "" {
		base += "/" + url.PathEscape(route.Subcategory)
	}
	h.listing(w, r, route, base)
}

// listing prefetches the categories and the product query of the page into
// a fresh QueryClient, then renders from it.
func (h *Storefront) listing(w http.ResponseWriter, r *http.Request, route catalog.Route, base string) {
	ctx := r.Context()
	query := r.URL.Query()
	state := decodeState(query)

	client := catalog.NewQueryClient()
	if err := h.assembler.PrefetchCategories(ctx, client); err != nil {
		h.renderError(w, r, err)
		return
	}
	categories, _ := catalog.Lookup[[]model.Category](client, catalog.KeyCategories)

	data := ListingData{BasePath: base, Filters: state}
	title := "All products"

	if route.Category != "" {
		category, ok := model.FindCategory(categories, route.Category)
		if !ok {
			h.renderNotFound(w, r, categories)
			return
		}
		data.Category = &category
		title = category.Name

		if route.Subcategory != "" {
			sub, ok := category.Subcategory(route.Subcategory)
			if !ok {
				h.renderNotFound(w, r, categories)
				return
			}
			data.Subcategory = &sub
			title = sub.Name
		}
	}

	q := catalog.Assemble(route, state)
	q.Cursor = query.Get(paramCursor)

	key, err := h.assembler.Prefetch(ctx, client, q)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data.Products, _ = catalog.Lookup[model.Page[model.Product]](client, key)
	if data.Products.HasNextPage {
		data.NextURL = pageURL(base, state, url.Values{
			paramCursor:   {data.Products.NextCursor},
			paramTagPages: {query.Get(paramTagPages)},
		})
	}

	data.Tags = h.loadTags(r, base, state)

	dehydrated, err := client.Dehydrate()
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "pages/listing", render.TemplateData{
		Title:      title,
		Data:       data,
		User:       middleware.GetUser(r),
		Categories: categories,
		Search:     state.Search,
		State:      template.JS(dehydrated),
	})
}

// decodeState reads the filter state from the query, normalizing typed
// prices the way the price inputs do and capping the search term, so an
// edited URL still lists products.
func decodeState(query url.Values) filter.State {
	state := filter.Decode(query)
	state.MinPrice = sanitizePrice(state.MinPrice)
	state.MaxPrice = sanitizePrice(state.MaxPrice)
	if runes := []rune(state.Search); len(runes) > rpc.MaxSearchLength {
		state.Search = string(runes[:rpc.MaxSearchLength])
	}
	return state
}

func sanitizePrice(p *string) *string {
	if p == nil {
		return nil
	}
	v := price.Sanitize(*p)
	if v == "" {
		return nil
	}
	return &v
}

// loadTags fetches as many tag pages as the tagPages parameter asks for.
// A failure keeps the pages already loaded and never fails the page.
func (h *Storefront) loadTags(r *http.Request, base string, state filter.State) TagsView {
	query := r.URL.Query()
	pages, _ := strconv.Atoi(query.Get(paramTagPages))
	pages = min(max(pages, 1), maxTagPages)
	cursor := query.Get(paramCursor)

	sel := tagselect.New(h.router, h.tagLimit)
	sel.SetSelected(state.Tags)

	err := sel.Load(r.Context())
	for i := 1; err == nil && i < pages && sel.HasMore(); i++ {
		err = sel.FetchNext(r.Context())
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "loading tags", "pages", pages, "error", err)
	}

	view := TagsView{
		Tags:    sel.Visible(),
		HasMore: sel.HasMore(),
		Failed:  sel.State() == tagselect.Failed,
	}
	if view.HasMore {
		view.MoreURL = pageURL(base, state, url.Values{
			paramCursor:   {cursor},
			paramTagPages: {strconv.Itoa(sel.Pages() + 1)},
		})
	}
	if view.Failed {
		view.RetryURL = pageURL(base, state, url.Values{
			paramCursor:   {cursor},
			paramTagPages: {strconv.Itoa(pages)},
		})
	}
	return view
}

// pageURL returns base with the encoded state plus extra parameters.
// Empty extra values are omitted.
func pageURL(base string, state filter.State, extra url.Values) string {
	values := filter.Encode(state)
	for k, vs := range extra {
		for _, v := range vs {
			if v != "" {
				values.Add(k, v)
			}
		}
	}
	if q := values.Encode(); q != "" {
		return base + "?" + q
	}
	return base
}

// NotFound renders the 404 page.
func (h *Storefront) NotFound(w http.ResponseWriter, r *http.Request) {
	categories, _ := h.assembler.Categories(r.Context())
	h.renderNotFound(w, r, categories)
}

func (h *Storefront) renderNotFound(w http.ResponseWriter, r *http.Request, categories []model.Category) {
	h.render(w, r, http.StatusNotFound, "pages/error", render.TemplateData{
		Title:      "Page not found",
		Data:       ErrorData{Status: http.StatusNotFound, Message: "The page you are looking for does not exist."},
		User:       middleware.GetUser(r),
		Categories: categories,
	})
}

// renderError maps a procedure failure to an error page.
func (h *Storefront) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// Client went away.
		return
	}
	kind := rpc.KindOf(err)
	if kind == rpc.KindNotFound {
		h.NotFound(w, r)
		return
	}

	data := ErrorData{Status: http.StatusInternalServerError, Message: "Something went wrong."}
	switch kind {
	case rpc.KindTransient:
		data = ErrorData{Status: http.StatusServiceUnavailable, Message: "The catalog is temporarily unavailable.", Retryable: true}
		h.logger.WarnContext(r.Context(), "rendering listing", "error", err)
	case rpc.KindValidation:
		data = ErrorData{Status: http.StatusBadRequest, Message: "The link you followed is not valid."}
	default:
		h.logger.ErrorContext(r.Context(), "rendering listing", "error", err)
	}

	h.render(w, r, data.Status, "pages/error", render.TemplateData{
		Title: http.StatusText(data.Status),
		Data:  data,
		User:  middleware.GetUser(r),
	})
}

func (h *Storefront) render(w http.ResponseWriter, r *http.Request, status int, name string, data render.TemplateData) {
	if err := h.renderer.Render(w, r, status, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "rendering page", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
