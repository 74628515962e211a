// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/biblio-go/internal/model"
)

const reservationColumns = `id, book_id, user_id, reserved_at, expires_at, fulfilled, pickup_code`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ID, &r.BookID, &r.UserID, &r.ReservedAt, &r.ExpiresAt,
		&r.Fulfilled, &r.PickupCode)
	return r, err
}

// CreateReservationParams holds parameters for CreateReservation.
type CreateReservationParams struct {
	BookID     int64
	UserID     int64
	ReservedAt time.Time
	ExpiresAt  time.Time
	PickupCode string
}

// CreateReservation inserts a new unfulfilled reservation.
func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (model.Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO reservations (book_id, user_id, reserved_at, expires_at, pickup_code)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+reservationColumns,
		arg.BookID, arg.UserID, arg.ReservedAt, arg.ExpiresAt, arg.PickupCode)
	return scanReservation(row)
}

// GetReservationByID fetches a reservation by primary key.
func (q *Queries) GetReservationByID(ctx context.Context, id int64) (model.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// HasActiveReservation reports whether the user already holds an active
// (unfulfilled, unexpired) reservation on the book.
func (q *Queries) HasActiveReservation(ctx context.Context, bookID, userID int64, now time.Time) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE book_id = ? AND user_id = ? AND fulfilled = 0 AND expires_at > ?`,
		bookID, userID, now).Scan(&n)
	return n > 0, err
}

// OldestActiveReservation returns the earliest active reservation for the
// book. Ties on reserved_at break by insertion order (id).
func (q *Queries) OldestActiveReservation(ctx context.Context, bookID int64, now time.Time) (model.Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE book_id = ? AND fulfilled = 0 AND expires_at > ?
		ORDER BY reserved_at, id
		LIMIT 1`, bookID, now)
	return scanReservation(row)
}

// FulfillReservation marks a reservation as fulfilled.
func (q *Queries) FulfillReservation(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE reservations SET fulfilled = 1 WHERE id = ?`, id)
	return err
}

// ReservationDetail is a reservation joined with book and user display fields.
type ReservationDetail struct {
	model.Reservation
	BookTitle string
	Username  string
	UserName  string
	UserEmail string
}

const reservationDetailQuery = `
	SELECT r.id, r.book_id, r.user_id, r.reserved_at, r.expires_at, r.fulfilled, r.pickup_code,
		b.title, u.username, u.name, u.email
	FROM reservations r
	JOIN books b ON b.id = r.book_id
	JOIN users u ON u.id = r.user_id`

func (q *Queries) queryReservationDetails(ctx context.Context, query string, args ...any) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []ReservationDetail
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(&d.ID, &d.BookID, &d.UserID, &d.ReservedAt, &d.ExpiresAt,
			&d.Fulfilled, &d.PickupCode, &d.BookTitle, &d.Username, &d.UserName, &d.UserEmail); err != nil {
			return nil, err
		}
		reservations = append(reservations, d)
	}
	return reservations, rows.Err()
}

// ListReservationsByUser returns a user's reservations, newest first.
func (q *Queries) ListReservationsByUser(ctx context.Context, userID int64) ([]ReservationDetail, error) {
	return q.queryReservationDetails(ctx,
		reservationDetailQuery+` WHERE r.user_id = ? ORDER BY r.reserved_at DESC`, userID)
}

// ListAllReservations returns every reservation, newest first.
func (q *Queries) ListAllReservations(ctx context.Context) ([]ReservationDetail, error) {
	return q.queryReservationDetails(ctx,
		reservationDetailQuery+` ORDER BY r.reserved_at DESC, r.id DESC`)
}

// ListReservationsExpiredBetween returns unfulfilled reservations whose
// expiry falls in [start, end). Used by the expiry notification sweep.
func (q *Queries) ListReservationsExpiredBetween(ctx context.Context, start, end time.Time) ([]ReservationDetail, error) {
	return q.queryReservationDetails(ctx,
		reservationDetailQuery+` WHERE r.fulfilled = 0 AND r.expires_at >= ? AND r.expires_at < ?
		ORDER BY r.expires_at`, start, end)
}
