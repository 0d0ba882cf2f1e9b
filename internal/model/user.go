// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the storefront domain types shared by the procedure
// layer, the catalog assembler and the page handlers.
package model

import "time"

// User represents a storefront customer account from the users collection.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is the result of resolving the request's auth token.
// Only the presence of User is meaningful to callers.
type Session struct {
	User *User `json:"user"`
}

// IsAuthenticated returns true if the session carries a user.
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}
