// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/biblio-go/internal/report"
	"github.com/olegiv/biblio-go/internal/store"
)

// ReportHandler serves downloadable circulation and catalog reports.
type ReportHandler struct {
	queries *store.Queries
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *sql.DB) *ReportHandler {
	return &ReportHandler{
		queries: store.New(db),
	}
}

// reportFormat describes one downloadable output format.
type reportFormat struct {
	contentType string
	extension   string
	write       func(w http.ResponseWriter, t report.Table) error
}

var reportFormats = map[string]reportFormat{
	"csv": {
		contentType: "text/csv; charset=utf-8",
		extension:   "csv",
		write:       func(w http.ResponseWriter, t report.Table) error { return report.WriteCSV(w, t) },
	},
	"xlsx": {
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		extension:   "xlsx",
		write:       func(w http.ResponseWriter, t report.Table) error { return report.WriteXLSX(w, t) },
	},
	"pdf": {
		contentType: "application/pdf",
		extension:   "pdf",
		write:       func(w http.ResponseWriter, t report.Table) error { return report.WritePDF(w, t) },
	},
}

// serve writes the table in the format named by the {format} URL parameter.
func (h *ReportHandler) serve(w http.ResponseWriter, r *http.Request, name string, table report.Table) {
	format, ok := reportFormats[chi.URLParam(r, "format")]
	if !ok {
		http.Error(w, "Unsupported format", http.StatusBadRequest)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("2006-01-02"), format.extension)
	w.Header().Set(HeaderContentType, format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := format.write(w, table); err != nil {
		// Headers are already sent, the download will simply be truncated.
		logAndInternalError(w, "report rendering failed", "error", err, "report", name)
	}
}

// Loans exports all loans.
// GET /manage/reports/loans/{format}
func (h *ReportHandler) Loans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.queries.ListAllLoans(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list loans for report", "error", err)
		return
	}
	h.serve(w, r, "loans", report.LoansTable(loans, time.Now()))
}

// Books exports the catalog.
// GET /manage/reports/books/{format}
func (h *ReportHandler) Books(w http.ResponseWriter, r *http.Request) {
	books, err := h.queries.ListBooks(r.Context(), store.ListBooksParams{})
	if err != nil {
		logAndInternalError(w, "failed to list books for report", "error", err)
		return
	}
	h.serve(w, r, "books", report.BooksTable(books))
}

// Reservations exports all reservations.
// GET /manage/reports/reservations/{format}
func (h *ReportHandler) Reservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.queries.ListAllReservations(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list reservations for report", "error", err)
		return
	}
	h.serve(w, r, "reservations", report.ReservationsTable(reservations, time.Now()))
}
