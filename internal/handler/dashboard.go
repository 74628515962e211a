// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/store"
)

// DashboardHandler renders the librarian statistics dashboard.
type DashboardHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *sql.DB, renderer *render.Renderer) *DashboardHandler {
	return &DashboardHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// dashboardData is the template payload for the dashboard.
type dashboardData struct {
	TotalBooks    int64
	TotalReaders  int64
	OpenLoans     int64
	LoansPerMonth []store.MonthlyLoanCount
	TopBooks      []store.BookLoanCount
	RecentEvents  []model.Event
}

// Index renders the dashboard.
// GET /manage
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data dashboardData
	var err error

	if data.TotalBooks, err = h.queries.CountBooks(ctx); err != nil {
		logAndInternalError(w, "failed to count books", "error", err)
		return
	}
	if data.TotalReaders, err = h.queries.CountUsersByRole(ctx, model.RoleReader); err != nil {
		logAndInternalError(w, "failed to count readers", "error", err)
		return
	}
	if data.OpenLoans, err = h.queries.CountOpenLoans(ctx); err != nil {
		logAndInternalError(w, "failed to count open loans", "error", err)
		return
	}
	if data.LoansPerMonth, err = h.queries.LoansPerMonth(ctx); err != nil {
		logAndInternalError(w, "failed to load monthly loans", "error", err)
		return
	}
	if data.TopBooks, err = h.queries.TopLoanedBooks(ctx, 10); err != nil {
		logAndInternalError(w, "failed to load top books", "error", err)
		return
	}
	if data.RecentEvents, err = h.queries.ListRecentEvents(ctx, 20); err != nil {
		logAndInternalError(w, "failed to load recent events", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "manage/dashboard", templateData(r, "Dashboard", data)); err != nil {
		logAndInternalError(w, "render dashboard", "error", err)
	}
}
