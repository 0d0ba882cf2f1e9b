// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so field errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return usernamePattern.MatchString(s) && !strings.Contains(s, "--")
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return pricePattern.MatchString(fl.Field().String())
	})
	return v
}

var pricePattern = regexp.MustCompile(`^(\d+(\.\d{0,2})?|\.\d{1,2})$`)

var fieldMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"username": "can only contain lowercase letters, numbers and hyphens, must start and end with a letter or number, and cannot contain consecutive hyphens",
	"price":    "must be a non-negative amount with at most two decimal places",
}

// validateInput checks in against its struct tags and converts failures
// into a KindValidation error keyed by JSON field name.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(KindValidation, "Invalid input", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &Error{Kind: KindValidation, Message: "Invalid input", Fields: fields, Err: err}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg
	}
	return "is invalid"
}
