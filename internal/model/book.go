// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Book availability states. BookStateOverdue exists in the schema but is
// never assigned by any lifecycle operation; overdue tracking is done
// per-loan via Loan.IsOverdue.
const (
	BookStateAvailable = "available"
	BookStateLoaned    = "loaned"
	BookStateOverdue   = "overdue"
)

// ValidBookStates contains all valid book states.
var ValidBookStates = []string{BookStateAvailable, BookStateLoaned, BookStateOverdue}

// Book represents a catalog book. State is denormalized: it must reflect the
// existence of an open loan and is kept consistent by the lifecycle engine.
type Book struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	AuthorID   int64          `json:"author_id"`
	CategoryID sql.NullInt64  `json:"category_id,omitempty"`
	ISBN       string         `json:"isbn"`
	Summary    sql.NullString `json:"summary,omitempty"`
	CoverPath  sql.NullString `json:"cover_path,omitempty"`
	CoverURL   sql.NullString `json:"cover_url,omitempty"`
	State      string         `json:"state"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Available returns true if the book can be loaned directly.
func (b Book) Available() bool {
	return b.State == BookStateAvailable
}

// HasCover returns true if the book has either an uploaded cover or a cover URL.
func (b Book) HasCover() bool {
	return b.CoverPath.Valid || b.CoverURL.Valid
}

// Author represents a book author.
type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns the author's display name.
func (a Author) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Category represents a book category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
