// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, Book, Loan, and Reservation structures.
package model

import (
	"database/sql"
	"time"
)

// User roles.
const (
	RoleReader    = "reader"
	RoleLibrarian = "librarian"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleReader, RoleLibrarian}

// User represents a library user.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsLibrarian returns true if the user has the librarian role.
func (u *User) IsLibrarian() bool {
	return u.Role == RoleLibrarian
}

// DisplayName returns the user's name, falling back to the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
