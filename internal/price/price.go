// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package price normalizes free-text price input and renders it as US currency.
package price

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MaxFractionDigits is the number of decimal places kept by Sanitize.
const MaxFractionDigits = 2

var printer = message.NewPrinter(language.AmericanEnglish)

// Sanitize drops every character other than digits and '.', then keeps at
// most MaxFractionDigits digits after the first decimal point. Anything after
// a second decimal point is discarded. Input without digits yields "".
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	whole, frac, hasDot := strings.Cut(b.String(), ".")
	if hasDot {
		if i := strings.IndexByte(frac, '.'); i >= 0 {
			frac = frac[:i]
		}
		if len(frac) > MaxFractionDigits {
			frac = frac[:MaxFractionDigits]
		}
	}
	if whole == "" && frac == "" {
		return ""
	}
	if !hasDot {
		return whole
	}
	return whole + "." + frac
}

// Display formats a numeric string as en-US currency with thousands
// separators and up to two fraction digits. Unparseable input yields "".
func Display(numeric string) string {
	if numeric == "" {
		return ""
	}
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return sign + "$" + printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(0),
		number.MaxFractionDigits(MaxFractionDigits),
	))
}

// Format sanitizes then displays input. Format(Format(x)) == Format(x).
func Format(input string) string {
	return Display(Sanitize(input))
}
