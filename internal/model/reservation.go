// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// DefaultReservationTTL is how long a reservation stays active before it
// expires unattended.
const DefaultReservationTTL = 3 * 24 * time.Hour

// Reservation is a queued request to be offered a currently-unavailable
// book. Reservations are fulfilled oldest-first when the book is returned.
type Reservation struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"book_id"`
	UserID     int64     `json:"user_id"`
	ReservedAt time.Time `json:"reserved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Fulfilled  bool      `json:"fulfilled"`
	PickupCode string    `json:"pickup_code"`
}

// IsActive reports whether the reservation is still waiting to be fulfilled
// at the given instant.
func (r Reservation) IsActive(now time.Time) bool {
	return !r.Fulfilled && !now.After(r.ExpiresAt)
}
