// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/biblio-go/internal/model"
)

const loanColumns = `id, book_id, user_id, loan_date, due_date, return_date, manual_overdue`

func scanLoan(row interface{ Scan(...any) error }) (model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.BookID, &l.UserID, &l.LoanDate, &l.DueDate,
		&l.ReturnDate, &l.ManualOverdue)
	return l, err
}

// CreateLoanParams holds parameters for CreateLoan.
type CreateLoanParams struct {
	BookID   int64
	UserID   int64
	LoanDate time.Time
	DueDate  time.Time
}

// CreateLoan inserts a new open loan.
func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) (model.Loan, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO loans (book_id, user_id, loan_date, due_date)
		VALUES (?, ?, ?, ?)
		RETURNING `+loanColumns,
		arg.BookID, arg.UserID, arg.LoanDate, arg.DueDate)
	return scanLoan(row)
}

// GetLoanByID fetches a loan by primary key.
func (q *Queries) GetLoanByID(ctx context.Context, id int64) (model.Loan, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	return scanLoan(row)
}

// CloseLoan stamps the loan's return date.
func (q *Queries) CloseLoan(ctx context.Context, returnDate time.Time, id int64) (model.Loan, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE loans SET return_date = ? WHERE id = ?
		RETURNING `+loanColumns,
		sql.NullTime{Time: returnDate, Valid: true}, id)
	return scanLoan(row)
}

// SetLoanManualOverdue sets or clears the librarian's manual overdue flag.
func (q *Queries) SetLoanManualOverdue(ctx context.Context, flag bool, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE loans SET manual_overdue = ? WHERE id = ?`, flag, id)
	return err
}

// HasOpenOverdueLoan reports whether the user has any open loan past its due
/// date or manually flagged overdue. This is the sanction check: a user with
// an active sanction cannot create new loans.
func (q *Queries) HasOpenOverdueLoan(ctx context.Context, userID int64, now time.Time) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM loans
		WHERE user_id = ? AND return_date IS NULL AND (manual_overdue = 1 OR due_date < ?)`,
		userID, now).Scan(&n)
	return n > 0, err
}

// CountOpenLoansForBook returns how many open loans exist for a book.
func (q *Queries) CountOpenLoansForBook(ctx context.Context, bookID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND return_date IS NULL`, bookID).Scan(&n)
	return n, err
}

// CountOpenLoans returns the total number of open loans.
func (q *Queries) CountOpenLoans(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE return_date IS NULL`).Scan(&n)
	return n, err
}

// LoanDetail is a loan joined with book and user display fields.
type LoanDetail struct {
	model.Loan
	BookTitle string
	Username  string
	UserName  string
	UserEmail string
}

const loanDetailQuery = `
	SELECT l.id, l.book_id, l.user_id, l.loan_date, l.due_date, l.return_date, l.manual_overdue,
		b.title, u.username, u.name, u.email
	FROM loans l
	JOIN books b ON b.id = l.book_id
	JOIN users u ON u.id = l.user_id`

func scanLoanDetail(row interface{ Scan(...any) error }) (LoanDetail, error) {
	var d LoanDetail
	err := row.Scan(&d.ID, &d.BookID, &d.UserID, &d.LoanDate, &d.DueDate,
		&d.ReturnDate, &d.ManualOverdue, &d.BookTitle, &d.Username, &d.UserName, &d.UserEmail)
	return d, err
}

func (q *Queries) queryLoanDetails(ctx context.Context, query string, args ...any) ([]LoanDetail, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []LoanDetail
	for rows.Next() {
		d, err := scanLoanDetail(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, d)
	}
	return loans, rows.Err()
}

// ListLoansByUser returns a user's loans, newest first.
func (q *Queries) ListLoansByUser(ctx context.Context, userID int64) ([]LoanDetail, error) {
	return q.queryLoanDetails(ctx,
		loanDetailQuery+` WHERE l.user_id = ? ORDER BY l.loan_date DESC`, userID)
}

// ListAllLoans returns every loan, open loans first, then newest first.
func (q *Queries) ListAllLoans(ctx context.Context) ([]LoanDetail, error) {
	return q.queryLoanDetails(ctx,
		loanDetailQuery+` ORDER BY l.return_date IS NOT NULL, l.loan_date DESC`)
}

// ListOpenLoans returns open loans ordered by due date, soonest first.
func (q *Queries) ListOpenLoans(ctx context.Context) ([]LoanDetail, error) {
	return q.queryLoanDetails(ctx,
		loanDetailQuery+` WHERE l.return_date IS NULL ORDER BY l.due_date`)
}

// ListLoansDueBetween returns open loans whose due date falls in the
// half-open interval [start, end). Used by the due-soon reminder sweep.
func (q *Queries) ListLoansDueBetween(ctx context.Context, start, end time.Time) ([]LoanDetail, error) {
	return q.queryLoanDetails(ctx,
		loanDetailQuery+` WHERE l.return_date IS NULL AND l.due_date >= ? AND l.due_date < ?
		ORDER BY l.due_date`, start, end)
}

// MonthlyLoanCount pairs a month (YYYY-MM) with how many loans started in it.
type MonthlyLoanCount struct {
	Month string
	Loans int64
}

// LoansPerMonth returns loan counts grouped by the month the loan started.
func (q *Queries) LoansPerMonth(ctx context.Context) ([]MonthlyLoanCount, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', loan_date) AS month, COUNT(*)
		FROM loans
		GROUP BY month
		ORDER BY month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []MonthlyLoanCount
	for rows.Next() {
		var c MonthlyLoanCount
		if err := rows.Scan(&c.Month, &c.Loans); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
