// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides URL slug generation and validation.
package util

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a category or product name to a URL slug. Non-ASCII
// letters are transliterated, so "Straße" becomes "strasse" and CJK names
// keep a readable romanized form instead of vanishing.
func Slugify(s string) string {
	result := unidecode.Unidecode(norm.NFC.String(s))
	result = strings.ToLower(result)
	result = strings.Join(strings.Fields(result), "-")
	result = nonSlugChars.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// IsValidSlug reports whether s is lowercase ASCII letters, digits and single
// inner hyphens.
func IsValidSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
