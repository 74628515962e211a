// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic circulation sweeps: due-date
// reminders for loans and expiry notices for reservations.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/biblio-go/internal/notify"
	"github.com/olegiv/biblio-go/internal/store"
)

// Scheduler handles the periodic notification sweeps.
type Scheduler struct {
	db       *sql.DB
	notifier notify.Notifier
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time

	mu              sync.Mutex
	lastExpirySweep time.Time
}

// New creates a new scheduler instance.
func New(db *sql.DB, notifier notify.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		notifier: notifier,
		cron:     cron.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the scheduler's time source. Used in tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers the sweep jobs and begins the scheduler.
// Due reminders run every morning at 08:00; expiry notices run hourly.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.lastExpirySweep = s.now()
	s.mu.Unlock()

	if _, err := s.cron.AddFunc("0 8 * * *", func() {
		if err := s.RunDueReminders(context.Background()); err != nil {
			s.logger.Error("due reminder sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("0 * * * *", func() {
		if err := s.RunExpiryNotices(context.Background()); err != nil {
			s.logger.Error("reservation expiry sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunDueReminders sends a reminder to every borrower whose open loan is due
// tomorrow. Delivery is best-effort per loan: one failed send is logged and
// does not stop the sweep.
func (s *Scheduler) RunDueReminders(ctx context.Context) error {
	now := s.now()
	queries := store.New(s.db)

	// The whole of tomorrow, in the server's timezone.
	year, month, day := now.Date()
	start := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	loans, err := queries.ListLoansDueBetween(ctx, start, end)
	if err != nil {
		return err
	}

	if len(loans) == 0 {
		return nil
	}

	s.logger.Info("sending due date reminders", "count", len(loans))

	for _, loan := range loans {
		body := notify.DueReminderBody(loan.UserName, loan.BookTitle, loan.DueDate)
		if err := s.notifier.Send(ctx, loan.UserEmail, notify.SubjectDueReminder, body); err != nil {
			s.logger.Warn("due reminder delivery failed",
				"loan_id", loan.ID, "recipient", loan.UserEmail, "error", err)
		}
	}

	return nil
}

// RunExpiryNotices notifies holders of reservations that expired since the
// previous sweep. The window is tracked in memory, so a restart may skip
// notices for reservations that expired while the process was down.
func (s *Scheduler) RunExpiryNotices(ctx context.Context) error {
	now := s.now()

	s.mu.Lock()
	since := s.lastExpirySweep
	s.lastExpirySweep = now
	s.mu.Unlock()

	queries := store.New(s.db)
	reservations, err := queries.ListReservationsExpiredBetween(ctx, since, now)
	if err != nil {
		return err
	}

	if len(reservations) == 0 {
		return nil
	}

	s.logger.Info("sending reservation expiry notices", "count", len(reservations))

	for _, r := range reservations {
		body := notify.ReservationExpiredBody(r.UserName, r.BookTitle)
		if err := s.notifier.Send(ctx, r.UserEmail, notify.SubjectReservationExpired, body); err != nil {
			s.logger.Warn("expiry notice delivery failed",
				"reservation_id", r.ID, "recipient", r.UserEmail, "error", err)
		}
	}

	return nil
}
