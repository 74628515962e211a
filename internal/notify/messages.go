// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"fmt"
	"time"
)

// Notification subjects.
const (
	SubjectLoanConfirmation   = "Loan Confirmation - Digital Library"
	SubjectDueReminder        = "Due Date Reminder - Digital Library"
	SubjectReservationReady   = "Your reservation is available"
	SubjectReservationExpired = "Your reservation has expired"
)

// LoanConfirmationBody builds the message sent when a loan is created.
func LoanConfirmationBody(name, bookTitle string, dueDate time.Time) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"This confirms you have borrowed the book: %q.\n"+
		"The due date is: %s.\n\n"+
		"Thank you for using the Digital Library!",
		name, bookTitle, dueDate.Format("2006-01-02"))
}

// DueReminderBody builds the message sent when a loan is due tomorrow.
func DueReminderBody(name, bookTitle string, dueDate time.Time) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"This is a friendly reminder that your loan of %q is due tomorrow, %s.\n\n"+
		"Please remember to return it on time to avoid sanctions.\n\n"+
		"Thank you for using the Digital Library!",
		name, bookTitle, dueDate.Format("2006-01-02"))
}

// ReservationReadyBody builds the message sent when a returned book fulfills
// a reservation.
func ReservationReadyBody(name, bookTitle string, expiresAt time.Time, pickupCode string) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"The book %q is now available for loan. "+
		"You have until %s to pick it up. Your pickup code is %s.",
		name, bookTitle, expiresAt.Format("2006-01-02 15:04"), pickupCode)
}

// ReservationExpiredBody builds the message sent when a reservation lapses
// unattended.
func ReservationExpiredBody(name, bookTitle string) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"Your reservation for %q expired without being fulfilled. "+
		"You can place a new reservation if the book is still unavailable.",
		name, bookTitle)
}
