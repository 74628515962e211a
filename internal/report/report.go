// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package report renders catalog and circulation data as downloadable
// CSV, XLSX and PDF documents.
package report

import (
	"strconv"
	"time"

	"github.com/olegiv/biblio-go/internal/store"
)

const dateFormat = "2006-01-02"

// Table is a renderer-independent tabular report.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// LoansTable builds a report table from loan records.
func LoansTable(loans []store.LoanDetail, now time.Time) Table {
	t := Table{
		Title:  "Loans",
		Header: []string{"ID", "Book", "User", "Email", "Loan Date", "Due Date", "Return Date", "Status"},
	}
	for _, l := range loans {
		returnDate := ""
		if l.ReturnDate.Valid {
			returnDate = l.ReturnDate.Time.Format(dateFormat)
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.BookTitle,
			l.UserName,
			l.UserEmail,
			l.LoanDate.Format(dateFormat),
			l.DueDate.Format(dateFormat),
			returnDate,
			loanStatus(&l, now),
		})
	}
	return t
}

func loanStatus(l *store.LoanDetail, now time.Time) string {
	switch {
	case l.ReturnDate.Valid:
		return "returned"
	case l.IsOverdue(now):
		return "overdue"
	default:
		return "open"
	}
}

// BooksTable builds a report table from catalog records.
func BooksTable(books []store.BookDetail) Table {
	t := Table{
		Title:  "Books",
		Header: []string{"ID", "Title", "Author", "Category", "ISBN", "State"},
	}
	for _, b := range books {
		category := ""
		if b.CategoryName.Valid {
			category = b.CategoryName.String
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.AuthorName,
			category,
			b.ISBN,
			b.State,
		})
	}
	return t
}

// ReservationsTable builds a report table from reservation records.
func ReservationsTable(reservations []store.ReservationDetail, now time.Time) Table {
	t := Table{
		Title:  "Reservations",
		Header: []string{"ID", "Book", "User", "Reserved At", "Expires At", "Status"},
	}
	for _, r := range reservations {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.BookTitle,
			r.UserName,
			r.ReservedAt.Format(dateFormat),
			r.ExpiresAt.Format(dateFormat),
			reservationStatus(&r, now),
		})
	}
	return t
}

func reservationStatus(r *store.ReservationDetail, now time.Time) string {
	switch {
	case r.Fulfilled:
		return "fulfilled"
	case now.After(r.ExpiresAt):
		return "expired"
	default:
		return "active"
	}
}
