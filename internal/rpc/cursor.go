// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"encoding/base64"
	"strconv"
)

// encodeCursor returns the opaque token for a backend page number.
func encodeCursor(page int) string {
	if page <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(page)))
}

// decodeCursor returns the page a cursor points at; the empty cursor is the
// first page.
func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, &Error{Kind: KindValidation, Message: "Invalid cursor", Fields: map[string]string{"cursor": "is invalid"}, Err: err}
	}
	page, err := strconv.Atoi(string(raw))
	if err != nil || page < 1 {
		return 0, &Error{Kind: KindValidation, Message: "Invalid cursor", Fields: map[string]string{"cursor": "is invalid"}, Err: err}
	}
	return page, nil
}
