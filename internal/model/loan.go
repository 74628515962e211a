// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// DefaultLoanPeriod is the standard loan duration.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Loan records one user borrowing one book for a bounded period.
// A NULL ReturnDate means the loan is still open.
type Loan struct {
	ID            int64        `json:"id"`
	BookID        int64        `json:"book_id"`
	UserID        int64        `json:"user_id"`
	LoanDate      time.Time    `json:"loan_date"`
	DueDate       time.Time    `json:"due_date"`
	ReturnDate    sql.NullTime `json:"return_date,omitempty"`
	ManualOverdue bool         `json:"manual_overdue"`
}

// Open returns true if the loan has not been returned yet.
func (l Loan) Open() bool {
	return !l.ReturnDate.Valid
}

// IsOverdue reports whether the loan is overdue at the given instant.
// A returned loan is never overdue. The librarian's manual flag counts
// regardless of the due date.
func (l Loan) IsOverdue(now time.Time) bool {
	if l.ReturnDate.Valid {
		return false
	}
	if l.ManualOverdue {
		return true
	}
	return now.After(l.DueDate)
}
