// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package lifecycle implements the loan/reservation lifecycle engine: it
// enforces book availability transitions, loan creation and return rules,
// sanction checks, and reservation queueing.
//
// Every operation executes its read-decide-write sequence inside a single
// transaction, and book state transitions use a compare-and-swap WHERE
// clause so two concurrent requests cannot both observe "available" and
// both succeed.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/notify"
	"github.com/olegiv/biblio-go/internal/store"
)

// Engine enforces the loan/reservation lifecycle invariants.
type Engine struct {
	db             *sql.DB
	queries        *store.Queries
	notifier       notify.Notifier
	logger         *slog.Logger
	loanPeriod     time.Duration
	reservationTTL time.Duration
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoanPeriod overrides the default 14-day loan period.
func WithLoanPeriod(d time.Duration) Option {
	return func(e *Engine) { e.loanPeriod = d }
}

// WithReservationTTL overrides the default 3-day reservation lifetime.
func WithReservationTTL(d time.Duration) Option {
	return func(e *Engine) { e.reservationTTL = d }
}

// WithClock overrides the engine's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a lifecycle engine.
func New(db *sql.DB, notifier notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		db:             db,
		queries:        store.New(db),
		notifier:       notifier,
		logger:         slog.Default(),
		loanPeriod:     model.DefaultLoanPeriod,
		reservationTTL: model.DefaultReservationTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// inTx runs fn inside a transaction with queries bound to it.
func (e *Engine) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(e.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateLoan creates a loan for the given book and user.
//
// Preconditions, checked in order: the user must have no open loan past its
// due date (ErrSanctionActive), and the book must be available
// (ErrBookUnavailable). On success the book transitions to the loaned state
// and a confirmation notification is attempted. The loan record is the
// durable success signal: a failed notification is returned as a
// NotificationWarning, never as an error.
func (e *Engine) CreateLoan(ctx context.Context, bookID int64, user *model.User) (model.Loan, *NotificationWarning, error) {
	now := e.now()
	var loan model.Loan
	var book model.Book

	err := e.inTx(ctx, func(q *store.Queries) error {
		var err error
		book, err = q.GetBookByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
			}
			return fmt.Errorf("loading book: %w", err)
		}

		sanctioned, err := q.HasOpenOverdueLoan(ctx, user.ID, now)
		if err != nil {
			return fmt.Errorf("checking sanction: %w", err)
		}
		if sanctioned {
			return ErrSanctionActive
		}

		if book.State != model.BookStateAvailable {
			return ErrBookUnavailable
		}

		loan, err = q.CreateLoan(ctx, store.CreateLoanParams{
			BookID:   bookID,
			UserID:   user.ID,
			LoanDate: now,
			DueDate:  now.Add(e.loanPeriod),
		})
		if err != nil {
			return fmt.Errorf("creating loan: %w", err)
		}

		// Compare-and-swap: lose the race, lose the loan.
		swapped, err := q.SetBookStateIfCurrent(ctx, bookID, model.BookStateAvailable, model.BookStateLoaned, now)
		if err != nil {
			return fmt.Errorf("updating book state: %w", err)
		}
		if !swapped {
			return ErrBookUnavailable
		}
		return nil
	})
	if err != nil {
		return model.Loan{}, nil, err
	}

	e.logger.Info("loan created",
		"loan_id", loan.ID, "book_id", bookID, "user_id", user.ID, "due_date", loan.DueDate)

	warn := e.send(ctx, user.Email, notify.SubjectLoanConfirmation,
		notify.LoanConfirmationBody(user.DisplayName(), book.Title, loan.DueDate))
	return loan, warn, nil
}

// ReturnResult describes the outcome of a successful return.
type ReturnResult struct {
	Loan model.Loan
	Book model.Book
	// Fulfilled is the reservation claimed by this return, if any.
	Fulfilled *model.Reservation
}

// ReturnLoan closes a loan and makes the book available again. Only a
// librarian may return loans (ErrForbidden otherwise).
//
// After the return, the oldest active reservation for the book, if one
// exists, is marked fulfilled and its holder notified best-effort. At most
// one reservation is fulfilled per return. The book becomes generally
// available either way; no held-for-reservation state exists.
func (e *Engine) ReturnLoan(ctx context.Context, loanID int64, actor *model.User) (ReturnResult, *NotificationWarning, error) {
	if !actor.IsLibrarian() {
		return ReturnResult{}, nil, ErrForbidden
	}

	now := e.now()
	var result ReturnResult
	var fulfilled model.Reservation
	var hasFulfilled bool

	err := e.inTx(ctx, func(q *store.Queries) error {
		loan, err := q.GetLoanByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
			}
			return fmt.Errorf("loading loan: %w", err)
		}

		result.Loan, err = q.CloseLoan(ctx, now, loan.ID)
		if err != nil {
			return fmt.Errorf("closing loan: %w", err)
		}

		if err := q.SetBookState(ctx, loan.BookID, model.BookStateAvailable, now); err != nil {
			return fmt.Errorf("updating book state: %w", err)
		}

		result.Book, err = q.GetBookByID(ctx, loan.BookID)
		if err != nil {
			return fmt.Errorf("loading book: %w", err)
		}

		fulfilled, err = q.OldestActiveReservation(ctx, loan.BookID, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil // no queue, book stays available for direct loan
			}
			return fmt.Errorf("finding oldest reservation: %w", err)
		}

		if err := q.FulfillReservation(ctx, fulfilled.ID); err != nil {
			return fmt.Errorf("fulfilling reservation: %w", err)
		}
		fulfilled.Fulfilled = true
		hasFulfilled = true
		return nil
	})
	if err != nil {
		return ReturnResult{}, nil, err
	}

	e.logger.Info("loan returned",
		"loan_id", loanID, "book_id", result.Book.ID, "by_user_id", actor.ID)

	var warn *NotificationWarning
	if hasFulfilled {
		result.Fulfilled = &fulfilled
		warn = e.notifyReservationReady(ctx, &fulfilled, result.Book.Title)
	}
	return result, warn, nil
}

// CreateReservation queues the user for a currently-unavailable book.
//
// Reservations on available books are rejected (ErrBookAvailable); the
// reader should simply loan the book. A user holding an active reservation
// on the same book gets ErrDuplicateReservation. No notification is sent at
// creation time.
func (e *Engine) CreateReservation(ctx context.Context, bookID int64, user *model.User) (model.Reservation, error) {
	now := e.now()
	var reservation model.Reservation

	err := e.inTx(ctx, func(q *store.Queries) error {
		book, err := q.GetBookByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
			}
			return fmt.Errorf("loading book: %w", err)
		}

		if book.State == model.BookStateAvailable {
			return ErrBookAvailable
		}

		duplicate, err := q.HasActiveReservation(ctx, bookID, user.ID, now)
		if err != nil {
			return fmt.Errorf("checking for duplicate reservation: %w", err)
		}
		if duplicate {
			return ErrDuplicateReservation
		}

		reservation, err = q.CreateReservation(ctx, store.CreateReservationParams{
			BookID:     bookID,
			UserID:     user.ID,
			ReservedAt: now,
			ExpiresAt:  now.Add(e.reservationTTL),
			PickupCode: uuid.NewString(),
		})
		if err != nil {
			return fmt.Errorf("creating reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}

	e.logger.Info("reservation created",
		"reservation_id", reservation.ID, "book_id", bookID, "user_id", user.ID,
		"expires_at", reservation.ExpiresAt)
	return reservation, nil
}

// notifyReservationReady sends the best-effort "reservation ready" message
// to the reservation holder.
func (e *Engine) notifyReservationReady(ctx context.Context, r *model.Reservation, bookTitle string) *NotificationWarning {
	holder, err := e.queries.GetUserByID(ctx, r.UserID)
	if err != nil {
		e.logger.Warn("reservation fulfilled but holder lookup failed",
			"reservation_id", r.ID, "user_id", r.UserID, "error", err)
		return &NotificationWarning{Recipient: fmt.Sprintf("user %d", r.UserID), Err: err}
	}
	return e.send(ctx, holder.Email, notify.SubjectReservationReady,
		notify.ReservationReadyBody(holder.DisplayName(), bookTitle, r.ExpiresAt, r.PickupCode))
}

// send attempts a notification and downgrades any failure to a warning.
func (e *Engine) send(ctx context.Context, recipient, subject, body string) *NotificationWarning {
	if e.notifier == nil {
		return nil
	}
	if err := e.notifier.Send(ctx, recipient, subject, body); err != nil {
		e.logger.Warn("notification delivery failed",
			"recipient", recipient, "subject", subject, "error", err)
		return &NotificationWarning{Recipient: recipient, Err: err}
	}
	return nil
}
