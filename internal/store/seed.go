// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/biblio-go/internal/auth"
	"github.com/olegiv/biblio-go/internal/model"
)

// Default librarian credentials
const (
	DefaultLibrarianEmail    = "librarian@example.com"
	DefaultLibrarianUsername = "librarian"
	DefaultLibrarianPassword = "changeme"
	DefaultLibrarianName     = "Head Librarian"
)

// Seed creates the initial librarian account and a small demo catalog.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	// Check if the librarian already exists
	_, err := queries.GetUserByEmail(ctx, DefaultLibrarianEmail)
	if err == nil {
		slog.Info("librarian account already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for librarian account: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultLibrarianPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultLibrarianEmail,
		Username:     DefaultLibrarianUsername,
		PasswordHash: passwordHash,
		Role:         model.RoleLibrarian,
		Name:         DefaultLibrarianName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating librarian account: %w", err)
	}

	slog.Info("created default librarian account",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultLibrarianPassword,
	)

	if err := seedCatalog(ctx, queries, now); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	return nil
}

// seedCatalog inserts a handful of authors, categories, and books so a fresh
// install has something to browse.
func seedCatalog(ctx context.Context, queries *Queries, now time.Time) error {
	fiction, err := queries.CreateCategory(ctx, "Fiction")
	if err != nil {
		return err
	}
	essay, err := queries.CreateCategory(ctx, "Essay")
	if err != nil {
		return err
	}

	books := []struct {
		title      string
		authorFrst string
		authorLast string
		category   int64
		isbn       string
		summary    string
	}{
		{"One Hundred Years of Solitude", "Gabriel", "García Márquez", fiction.ID,
			"9780060883287", "The multi-generational story of the Buendía family."},
		{"The Aleph", "Jorge Luis", "Borges", fiction.ID,
			"9780142437889", "Short stories exploring infinity and identity."},
		{"Labyrinths", "Jorge Luis", "Borges", essay.ID,
			"9780811216999", "Selected stories and other writings."},
		{"Pedro Páramo", "Juan", "Rulfo", fiction.ID,
			"9780802133908", "A man's journey to a town inhabited by ghosts."},
	}

	authors := make(map[string]int64)
	for _, b := range books {
		key := b.authorFrst + " " + b.authorLast
		authorID, ok := authors[key]
		if !ok {
			a, err := queries.CreateAuthor(ctx, CreateAuthorParams{
				FirstName: b.authorFrst,
				LastName:  b.authorLast,
			})
			if err != nil {
				return err
			}
			authorID = a.ID
			authors[key] = authorID
		}

		if _, err := queries.CreateBook(ctx, CreateBookParams{
			Title:      b.title,
			AuthorID:   authorID,
			CategoryID: sql.NullInt64{Int64: b.category, Valid: true},
			ISBN:       b.isbn,
			Summary:    sql.NullString{String: b.summary, Valid: true},
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
	}

	slog.Info("seeded demo catalog", "books", len(books))
	return nil
}
