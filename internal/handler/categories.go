// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/store"
)

// CategoryHandler handles librarian category management.
type CategoryHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(db *sql.DB, renderer *render.Renderer) *CategoryHandler {
	return &CategoryHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// categoryListData is the template payload for the category list.
type categoryListData struct {
	Categories []model.Category
	Search     string
}

// List renders all categories.
// GET /manage/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	categories, err := h.queries.ListCategories(r.Context(), search)
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return
	}

	data := categoryListData{Categories: categories, Search: search}
	if err := h.renderer.Render(w, r, "manage/categories", templateData(r, "Categories", data)); err != nil {
		logAndInternalError(w, "render categories", "error", err)
	}
}

// Create adds a new category.
// POST /manage/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectManageCategories) {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		flashError(w, r, h.renderer, redirectManageCategories, "Name is required")
		return
	}

	if _, err := h.queries.CreateCategory(r.Context(), name); err != nil {
		slog.Error("failed to create category", "error", err, "name", name)
		flashError(w, r, h.renderer, redirectManageCategories, "Could not create category, is the name unique?")
		return
	}

	flashSuccess(w, r, h.renderer, redirectManageCategories, "Category created")
}

// Update renames a category.
// POST /manage/categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectManageCategories) {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		flashError(w, r, h.renderer, redirectManageCategories, "Name is required")
		return
	}

	if err := h.queries.UpdateCategory(r.Context(), name, id); err != nil {
		slog.Error("failed to update category", "error", err, "category_id", id)
		flashError(w, r, h.renderer, redirectManageCategories, "Could not update category")
		return
	}

	flashSuccess(w, r, h.renderer, redirectManageCategories, "Category updated")
}

// Delete removes a category. Books keep existing with no category.
// POST /manage/categories/{id}/delete
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.queries.DeleteCategory(r.Context(), id); err != nil {
		slog.Error("failed to delete category", "error", err, "category_id", id)
		flashError(w, r, h.renderer, redirectManageCategories, "Could not delete category")
		return
	}

	flashSuccess(w, r, h.renderer, redirectManageCategories, "Category deleted")
}
