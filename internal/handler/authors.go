// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/store"
)

// AuthorHandler handles librarian author management.
type AuthorHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
}

// NewAuthorHandler creates a new AuthorHandler.
func NewAuthorHandler(db *sql.DB, renderer *render.Renderer) *AuthorHandler {
	return &AuthorHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
	}
}

// authorListData is the template payload for the author list.
type authorListData struct {
	Authors []model.Author
	Search  string
}

// List renders all authors with optional name search.
// GET /manage/authors
func (h *AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	authors, err := h.queries.ListAuthors(r.Context(), search)
	if err != nil {
		logAndInternalError(w, "failed to list authors", "error", err)
		return
	}

	data := authorListData{Authors: authors, Search: search}
	if err := h.renderer.Render(w, r, "manage/authors", templateData(r, "Authors", data)); err != nil {
		logAndInternalError(w, "render authors", "error", err)
	}
}

// New renders the author creation form.
// GET /manage/authors/new
func (h *AuthorHandler) New(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "manage/author_form", templateData(r, "New Author", nil)); err != nil {
		logAndInternalError(w, "render author form", "error", err)
	}
}

// Create adds a new author.
// POST /manage/authors
func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectManageAuthorsNew) {
		return
	}

	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	if firstName == "" {
		flashError(w, r, h.renderer, redirectManageAuthorsNew, "First name is required")
		return
	}

	author, err := h.queries.CreateAuthor(r.Context(), store.CreateAuthorParams{
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		slog.Error("failed to create author", "error", err)
		flashError(w, r, h.renderer, redirectManageAuthorsNew, "Could not create author")
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelInfo,
		"Author created", middleware.GetUserIDPtr(r), map[string]any{"author_id": author.ID})

	flashSuccess(w, r, h.renderer, redirectManageAuthors, "Author created")
}

// Edit renders the author edit form.
// GET /manage/authors/{id}
func (h *AuthorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	author, ok := requireEntityWithRedirect(w, r, h.renderer, redirectManageAuthors, "author", id,
		func(id int64) (model.Author, error) { return h.queries.GetAuthorByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.renderer.Render(w, r, "manage/author_form", templateData(r, "Edit Author", author)); err != nil {
		logAndInternalError(w, "render author form", "error", err)
	}
}

// Update saves an author's name.
// POST /manage/authors/{id}
func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectManageAuthors) {
		return
	}

	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	if firstName == "" {
		flashError(w, r, h.renderer, redirectManageAuthors, "First name is required")
		return
	}

	if err := h.queries.UpdateAuthor(r.Context(), store.UpdateAuthorParams{
		FirstName: firstName,
		LastName:  lastName,
		ID:        id,
	}); err != nil {
		slog.Error("failed to update author", "error", err, "author_id", id)
		flashError(w, r, h.renderer, redirectManageAuthors, "Could not update author")
		return
	}

	flashSuccess(w, r, h.renderer, redirectManageAuthors, "Author updated")
}

// Delete removes an author and, through cascade, their books.
// POST /manage/authors/{id}/delete
func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.queries.DeleteAuthor(r.Context(), id); err != nil {
		slog.Error("failed to delete author", "error", err, "author_id", id)
		flashError(w, r, h.renderer, redirectManageAuthors, "Could not delete author")
		return
	}

	_ = h.eventService.LogBookEvent(r.Context(), model.EventLevelWarning,
		"Author deleted", middleware.GetUserIDPtr(r), map[string]any{"author_id": id})

	flashSuccess(w, r, h.renderer, redirectManageAuthors, "Author deleted")
}
