// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/biblio-go/internal/lifecycle"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/store"
)

// LoanHandler handles loan creation, listing and returns.
type LoanHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	engine       *lifecycle.Engine
	eventService *service.EventService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(db *sql.DB, renderer *render.Renderer, engine *lifecycle.Engine) *LoanHandler {
	return &LoanHandler{
		queries:      store.New(db),
		renderer:     renderer,
		engine:       engine,
		eventService: service.NewEventService(db),
	}
}

// Create loans a book to the current user.
// POST /books/{id}/loan
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	loan, warn, err := h.engine.CreateLoan(r.Context(), bookID, user)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			flashError(w, r, h.renderer, redirectBooks, "Book not found")
		case errors.Is(err, lifecycle.ErrSanctionActive):
			flashError(w, r, h.renderer, detailURL,
				"You have an overdue loan, return it before borrowing again")
		case errors.Is(err, lifecycle.ErrBookUnavailable):
			flashError(w, r, h.renderer, detailURL, "This book is not available right now")
		default:
			logAndInternalError(w, "loan creation failed", "error", err, "book_id", bookID)
		}
		return
	}

	_ = h.eventService.LogLoanEvent(r.Context(), model.EventLevelInfo,
		"Loan created", &user.ID, map[string]any{"loan_id": loan.ID, "book_id": bookID})

	if warn != nil {
		flashAndRedirect(w, r, h.renderer, redirectMyLoans,
			"Book loaned, but the confirmation email could not be sent", "warning")
		return
	}
	flashSuccess(w, r, h.renderer, redirectMyLoans,
		fmt.Sprintf("Book loaned until %s", loan.DueDate.Format("Jan 2, 2006")))
}

// myLoansData is the template payload for the reader's loan list.
type myLoansData struct {
	Loans []store.LoanDetail
	Now   time.Time
}

// My renders the current user's loans.
// GET /loans
func (h *LoanHandler) My(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
		return
	}

	loans, err := h.queries.ListLoansByUser(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to list loans", "error", err)
		return
	}

	data := myLoansData{Loans: loans, Now: time.Now()}
	if err := h.renderer.Render(w, r, "site/my_loans", templateData(r, "My Loans", data)); err != nil {
		logAndInternalError(w, "render my loans", "error", err)
	}
}

// manageLoansData is the template payload for the librarian loan list.
type manageLoansData struct {
	Loans    []store.LoanDetail
	OpenOnly bool
	Now      time.Time
}

// Manage renders all loans for librarians. ?open=1 filters to open loans.
// GET /manage/loans
func (h *LoanHandler) Manage(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "1"

	var loans []store.LoanDetail
	var err error
	if openOnly {
		loans, err = h.queries.ListOpenLoans(r.Context())
	} else {
		loans, err = h.queries.ListAllLoans(r.Context())
	}
	if err != nil {
		logAndInternalError(w, "failed to list loans", "error", err)
		return
	}

	data := manageLoansData{Loans: loans, OpenOnly: openOnly, Now: time.Now()}
	if err := h.renderer.Render(w, r, "manage/loans", templateData(r, "Manage Loans", data)); err != nil {
		logAndInternalError(w, "render manage loans", "error", err)
	}
}

// Return closes a loan. Librarian only; the engine enforces the role too.
// POST /manage/loans/{id}/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
		return
	}

	result, warn, err := h.engine.ReturnLoan(r.Context(), loanID, user)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, lifecycle.ErrNotFound):
			flashError(w, r, h.renderer, redirectManageLoans, "Loan not found")
		default:
			logAndInternalError(w, "loan return failed", "error", err, "loan_id", loanID)
		}
		return
	}

	_ = h.eventService.LogLoanEvent(r.Context(), model.EventLevelInfo,
		"Loan returned", &user.ID, map[string]any{"loan_id": loanID, "book_id": result.Book.ID})

	message := fmt.Sprintf("%q returned", result.Book.Title)
	if result.Fulfilled != nil {
		message += ", the oldest reservation was notified"
	}
	if warn != nil {
		flashAndRedirect(w, r, h.renderer, redirectManageLoans,
			message+" (notification delivery failed)", "warning")
		return
	}
	flashSuccess(w, r, h.renderer, redirectManageLoans, message)
}

// ToggleOverdue flips the librarian's manual overdue flag on a loan.
// POST /manage/loans/{id}/overdue
func (h *LoanHandler) ToggleOverdue(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	loan, ok := requireEntityWithRedirect(w, r, h.renderer, redirectManageLoans, "loan", loanID,
		func(id int64) (model.Loan, error) { return h.queries.GetLoanByID(r.Context(), id) })
	if !ok {
		return
	}

	if !loan.Open() {
		flashError(w, r, h.renderer, redirectManageLoans, "Cannot flag a returned loan")
		return
	}

	newFlag := !loan.ManualOverdue
	if err := h.queries.SetLoanManualOverdue(r.Context(), newFlag, loanID); err != nil {
		slog.Error("failed to toggle manual overdue", "error", err, "loan_id", loanID)
		flashError(w, r, h.renderer, redirectManageLoans, "Could not update loan")
		return
	}

	_ = h.eventService.LogLoanEvent(r.Context(), model.EventLevelWarning,
		"Manual overdue flag changed", middleware.GetUserIDPtr(r),
		map[string]any{"loan_id": loanID, "manual_overdue": newFlag})

	if newFlag {
		flashSuccess(w, r, h.renderer, redirectManageLoans, "Loan flagged as overdue")
	} else {
		flashSuccess(w, r, h.renderer, redirectManageLoans, "Overdue flag cleared")
	}
}
