// Package logging provides a slog handler that tags every record with the
// request it was logged for.
package logging

import (
	"context"
	"log/slog"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type userIDKey struct{}

// WithUserID returns a context whose log records carry user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user ID stored by WithUserID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// RequestHandler is a slog.Handler that wraps another handler and appends
// request_id and user_id from the record context. Use the *Context logging
// methods for the attributes to appear.
type RequestHandler struct {
	inner slog.Handler
}

// NewRequestHandler creates a RequestHandler around inner.
func NewRequestHandler(inner slog.Handler) *RequestHandler {
	return &RequestHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *RequestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RequestHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := chimw.GetReqID(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		if id := UserIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("user_id", id))
		}
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *RequestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RequestHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *RequestHandler) WithGroup(name string) slog.Handler {
	return &RequestHandler{inner: h.inner.WithGroup(name)}
}
