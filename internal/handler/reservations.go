// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/olegiv/biblio-go/internal/lifecycle"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/store"
)

// ReservationHandler handles reservation creation and listing.
type ReservationHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	engine       *lifecycle.Engine
	eventService *service.EventService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(db *sql.DB, renderer *render.Renderer, engine *lifecycle.Engine) *ReservationHandler {
	return &ReservationHandler{
		queries:      store.New(db),
		renderer:     renderer,
		engine:       engine,
		eventService: service.NewEventService(db),
	}
}

// Create queues the current user for an unavailable book.
// POST /books/{id}/reserve
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
		return
	}

	detailURL := fmt.Sprintf(redirectBooksID, bookID)

	reservation, err := h.engine.CreateReservation(r.Context(), bookID, user)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			flashError(w, r, h.renderer, redirectBooks, "Book not found")
		case errors.Is(err, lifecycle.ErrBookAvailable):
			flashError(w, r, h.renderer, detailURL,
				"This book is available, you can loan it directly")
		case errors.Is(err, lifecycle.ErrDuplicateReservation):
			flashError(w, r, h.renderer, detailURL,
				"You already have an active reservation for this book")
		default:
			logAndInternalError(w, "reservation creation failed", "error", err, "book_id", bookID)
		}
		return
	}

	_ = h.eventService.LogReservationEvent(r.Context(), model.EventLevelInfo,
		"Reservation created", &user.ID,
		map[string]any{"reservation_id": reservation.ID, "book_id": bookID})

	flashSuccess(w, r, h.renderer, redirectMyReservations,
		fmt.Sprintf("Reserved until %s", reservation.ExpiresAt.Format("Jan 2, 2006")))
}

// myReservationsData is the template payload for the reader's reservations.
type myReservationsData struct {
	Reservations []store.ReservationDetail
	Now          time.Time
}

// My renders the current user's reservations.
// GET /reservations
func (h *ReservationHandler) My(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
		return
	}

	reservations, err := h.queries.ListReservationsByUser(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to list reservations", "error", err)
		return
	}

	data := myReservationsData{Reservations: reservations, Now: time.Now()}
	if err := h.renderer.Render(w, r, "site/my_reservations", templateData(r, "My Reservations", data)); err != nil {
		logAndInternalError(w, "render my reservations", "error", err)
	}
}
