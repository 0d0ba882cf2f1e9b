// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"errors"
	"net/http"

	"github.com/olegiv/ocms-storefront/internal/cms"
)

// Kind classifies a procedure failure.
type Kind string

// Error kinds.
const (
	// KindValidation is malformed input, rejected before any backend call.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindConflict is a duplicate unique value such as a taken username.
	KindConflict Kind = "CONFLICT"
	// KindUnauthenticated is missing or invalid credentials.
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	// KindTransient is a backend failure that may succeed on retry.
	KindTransient Kind = "TRANSIENT"
	// KindNotFound is an unknown procedure or resource.
	KindNotFound Kind = "NOT_FOUND"
	// KindInternal is any other failure.
	KindInternal Kind = "INTERNAL"
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same call may succeed later.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Error is returned by every procedure.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps input field names to validation messages.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for errors not produced here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// backendError classifies a backend failure. Anything unrecognised,
// including timeouts, is transient.
func backendError(message string, err error) *Error {
	switch {
	case errors.Is(err, cms.ErrConflict):
		return newError(KindConflict, message, err)
	case errors.Is(err, cms.ErrUnauthorized):
		return newError(KindUnauthenticated, message, err)
	case errors.Is(err, cms.ErrInvalidQuery):
		return newError(KindValidation, message, err)
	default:
		return newError(KindTransient, message, err)
	}
}
