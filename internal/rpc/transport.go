// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds mutation request bodies.
const maxBodySize = 64 << 10

// procedure is one transport-level entry point.
type procedure struct {
	mutation bool
	call     func(ctx context.Context, meta *Meta, input json.RawMessage) (any, error)
}

// bind adapts a typed procedure to the transport. Missing input decodes to
// the zero value of In.
func bind[In, Out any](mutation bool, fn func(context.Context, *Meta, In) (Out, error)) procedure {
	return procedure{
		mutation: mutation,
		call: func(ctx context.Context, meta *Meta, input json.RawMessage) (any, error) {
			var in In
			if len(input) > 0 && string(input) != "null" {
				if err := json.Unmarshal(input, &in); err != nil {
					return nil, newError(KindValidation, "Malformed input", err)
				}
			}
			return fn(ctx, meta, in)
		},
	}
}

func (r *Router) procedures() map[string]procedure {
	return map[string]procedure{
		"auth.session":       bind(false, r.Session),
		"auth.login":         bind(true, r.Login),
		"auth.register":      bind(true, r.Register),
		"auth.logout":        bind(true, r.Logout),
		"categories.getMany": bind(false, r.Categories),
		"products.getMany":   bind(false, r.Products),
		"tags.getMany":       bind(false, r.Tags),
	}
}

type successResponse struct {
	Result struct {
		Data any `json:"data"`
	} `json:"result"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      Kind              `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// Handler serves the procedures:
//
//	GET  /{procedure}?input=<json>  queries
//	POST /{procedure}               mutations, JSON body
func (r *Router) Handler() http.Handler {
	procs := r.procedures()

	mux := chi.NewRouter()
	mux.Get("/{procedure}", func(w http.ResponseWriter, req *http.Request) {
		r.serve(w, req, procs, false)
	})
	mux.Post("/{procedure}", func(w http.ResponseWriter, req *http.Request) {
		r.serve(w, req, procs, true)
	})
	return mux
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request, procs map[string]procedure, post bool) {
	name := chi.URLParam(req, "procedure")
	proc, ok := procs[name]
	if !ok {
		r.writeError(w, req, name, newError(KindNotFound, "No procedure found on path "+name, nil))
		return
	}
	if proc.mutation != post {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorDetail{
			Code:    "METHOD_NOT_SUPPORTED",
			Message: "Unsupported method for " + name,
		}})
		return
	}

	var input json.RawMessage
	if post {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodySize))
		if err != nil {
			r.writeError(w, req, name, newError(KindValidation, "Request body too large", err))
			return
		}
		input = body
	} else if raw := req.URL.Query().Get("input"); raw != "" {
		input = json.RawMessage(raw)
	}

	out, err := proc.call(req.Context(), NewMeta(w, req), input)
	if err != nil {
		r.writeError(w, req, name, err)
		return
	}

	var resp successResponse
	resp.Result.Data = out
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, name string, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindInternal, "Internal server error", err)
	}

	ctx := req.Context()
	switch e.Kind {
	case KindInternal:
		r.logger.ErrorContext(ctx, "procedure failed", "procedure", name, "error", err)
	case KindTransient:
		r.logger.WarnContext(ctx, "procedure failed", "procedure", name, "error", err)
	default:
		r.logger.DebugContext(ctx, "procedure rejected", "procedure", name, "kind", e.Kind, "message", e.Message)
	}

	message := e.Message
	if e.Kind == KindInternal {
		message = "Internal server error"
	}
	writeJSON(w, e.Kind.Status(), errorResponse{Error: errorDetail{
		Code:      e.Kind,
		Message:   message,
		Details:   e.Fields,
		Retryable: e.Kind.Retryable(),
	}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
