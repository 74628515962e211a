// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lifecycle

import "errors"

// Typed rejections returned by lifecycle operations. Every rejection is
// local to the operation call and causes no partial state mutation.
var (
	// ErrSanctionActive rejects a loan when the user has any open loan past
	// its due date.
	ErrSanctionActive = errors.New("user has an active sanction for an overdue loan")

	// ErrBookUnavailable rejects a loan when the book is not available.
	ErrBookUnavailable = errors.New("book is not available for loan")

	// ErrBookAvailable rejects a reservation when the book is available and
	// can simply be loaned directly.
	ErrBookAvailable = errors.New("book is available, reserve only unavailable books")

	// ErrDuplicateReservation rejects a reservation when the user already
	// holds an active one on the same book.
	ErrDuplicateReservation = errors.New("user already holds an active reservation on this book")

	// ErrForbidden rejects an operation the acting user's role does not allow.
	ErrForbidden = errors.New("operation requires the librarian role")

	// ErrNotFound reports that a referenced book, loan, or reservation does
	// not exist.
	ErrNotFound = errors.New("record not found")
)

// NotificationWarning reports a failed best-effort notification attached to
// an otherwise successful operation. It never invalidates the committed
// state change.
type NotificationWarning struct {
	Recipient string
	Err       error
}

// Error implements the error interface.
func (w *NotificationWarning) Error() string {
	return "notification to " + w.Recipient + " failed: " + w.Err.Error()
}

// Unwrap returns the underlying delivery error.
func (w *NotificationWarning) Unwrap() error {
	return w.Err
}
