// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/store"
	"github.com/olegiv/biblio-go/internal/testutil"
)

// fakeNotifier records sent notifications and can be told to fail.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentNotification
	fail  bool
	errTo error
}

type sentNotification struct {
	Recipient string
	Subject   string
	Body      string
}

func (f *fakeNotifier) Send(_ context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		if f.errTo == nil {
			f.errTo = errors.New("smtp unreachable")
		}
		return f.errTo
	}
	f.sent = append(f.sent, sentNotification{recipient, subject, body})
	return nil
}

func (f *fakeNotifier) sentTo(recipient string) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, s := range f.sent {
		if s.Recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}

// testClock is an adjustable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	db       *sql.DB
	queries  *store.Queries
	engine   *Engine
	notifier *fakeNotifier
	clock    *testClock
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	notifier := &fakeNotifier{}
	clock := newTestClock()
	engine := New(db, notifier,
		WithClock(clock.Now),
		WithLogger(testutil.TestLogger()),
	)

	return &engineFixture{
		db:       db,
		queries:  store.New(db),
		engine:   engine,
		notifier: notifier,
		clock:    clock,
	}
}

func (f *engineFixture) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	now := f.clock.Now()
	u, err := f.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		Role:         role,
		Name:         username,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return &u
}

func (f *engineFixture) createBook(t *testing.T, title string) model.Book {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()
	author, err := f.queries.CreateAuthor(ctx, store.CreateAuthorParams{
		FirstName: "Test", LastName: "Author",
	})
	require.NoError(t, err)
	book, err := f.queries.CreateBook(ctx, store.CreateBookParams{
		Title:     title,
		AuthorID:  author.ID,
		ISBN:      "isbn-" + title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return book
}

func (f *engineFixture) bookState(t *testing.T, id int64) string {
	t.Helper()
	book, err := f.queries.GetBookByID(context.Background(), id)
	require.NoError(t, err)
	return book.State
}

func TestCreateLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "Rayuela")

	loan, warn, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)
	assert.Nil(t, warn)

	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, reader.ID, loan.UserID)
	assert.True(t, loan.Open())
	assert.WithinDuration(t, f.clock.Now().Add(14*24*time.Hour), loan.DueDate, time.Second)
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, book.ID))

	// Confirmation notification goes to the borrower
	sent := f.notifier.sentTo(reader.Email)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Rayuela")
}

func TestCreateLoanBookUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createUser(t, "ana", model.RoleReader)
	second := f.createUser(t, "ben", model.RoleReader)
	book := f.createBook(t, "Ficciones")

	_, _, err := f.engine.CreateLoan(ctx, book.ID, first)
	require.NoError(t, err)

	// A second loan on a loaned book must always fail
	_, _, err = f.engine.CreateLoan(ctx, book.ID, second)
	assert.ErrorIs(t, err, ErrBookUnavailable)

	// Exactly one open loan exists
	open, err := f.queries.CountOpenLoansForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, book.ID))
}

func TestCreateLoanSanctionActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	overdueBook := f.createBook(t, "Overdue Book")
	otherBook := f.createBook(t, "Other Book")

	_, _, err := f.engine.CreateLoan(ctx, overdueBook.ID, reader)
	require.NoError(t, err)

	// Let the first loan become overdue
	f.clock.Advance(15 * 24 * time.Hour)

	// The sanction blocks loans on any book, not just the overdue one
	_, _, err = f.engine.CreateLoan(ctx, otherBook.ID, reader)
	assert.ErrorIs(t, err, ErrSanctionActive)

	// No mutation happened on the target book
	assert.Equal(t, model.BookStateAvailable, f.bookState(t, otherBook.ID))
	open, err := f.queries.CountOpenLoansForBook(ctx, otherBook.ID)
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestCreateLoanSanctionFromManualFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	flagged := f.createBook(t, "Flagged")
	other := f.createBook(t, "Other")

	loan, _, err := f.engine.CreateLoan(ctx, flagged.ID, reader)
	require.NoError(t, err)

	// Librarian marks the loan overdue before the due date passes
	require.NoError(t, f.queries.SetLoanManualOverdue(ctx, true, loan.ID))

	_, _, err = f.engine.CreateLoan(ctx, other.ID, reader)
	assert.ErrorIs(t, err, ErrSanctionActive)
}

func TestCreateLoanBookNotFound(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "ana", model.RoleReader)

	_, _, err := f.engine.CreateLoan(context.Background(), 9999, reader)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLoanNotificationFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "Quiet Book")

	f.notifier.fail = true

	loan, warn, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, reader.Email, warn.Recipient)

	// The loan is committed regardless of the delivery failure
	got, err := f.queries.GetLoanByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.Open())
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, book.ID))
}

func TestReturnLoanRequiresLibrarian(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "Guarded")

	loan, _, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)

	_, _, err = f.engine.ReturnLoan(ctx, loan.ID, reader)
	assert.ErrorIs(t, err, ErrForbidden)

	// Nothing changed
	got, err := f.queries.GetLoanByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.Open())
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, book.ID))
}

func TestReturnLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	librarian := f.createUser(t, "lib", model.RoleLibrarian)
	book := f.createBook(t, "Returned")

	loan, _, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)

	result, warn, err := f.engine.ReturnLoan(ctx, loan.ID, librarian)
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Nil(t, result.Fulfilled)

	assert.True(t, result.Loan.ReturnDate.Valid)
	assert.Equal(t, model.BookStateAvailable, f.bookState(t, book.ID))
}

func TestReturnLoanFulfillsOldestReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	librarian := f.createUser(t, "lib", model.RoleLibrarian)
	early := f.createUser(t, "early", model.RoleReader)
	late := f.createUser(t, "late", model.RoleReader)
	expired := f.createUser(t, "expired", model.RoleReader)
	book := f.createBook(t, "Wanted")

	loan, _, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)

	// expired reserves first but their reservation will lapse
	expiredRes, err := f.engine.CreateReservation(ctx, book.ID, expired)
	require.NoError(t, err)

	f.clock.Advance(4 * 24 * time.Hour) // past the 3-day reservation TTL

	earlyRes, err := f.engine.CreateReservation(ctx, book.ID, early)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	lateRes, err := f.engine.CreateReservation(ctx, book.ID, late)
	require.NoError(t, err)

	result, warn, err := f.engine.ReturnLoan(ctx, loan.ID, librarian)
	require.NoError(t, err)
	assert.Nil(t, warn)

	// Exactly the earliest active reservation is fulfilled
	require.NotNil(t, result.Fulfilled)
	assert.Equal(t, earlyRes.ID, result.Fulfilled.ID)

	got, err := f.queries.GetReservationByID(ctx, earlyRes.ID)
	require.NoError(t, err)
	assert.True(t, got.Fulfilled)

	// The others remain untouched
	for _, id := range []int64{expiredRes.ID, lateRes.ID} {
		r, err := f.queries.GetReservationByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, r.Fulfilled, "reservation %d must stay unfulfilled", id)
	}

	// The book is generally available even though a reservation claimed it
	assert.Equal(t, model.BookStateAvailable, f.bookState(t, book.ID))

	// The holder got a "reservation ready" notification with the pickup code
	sent := f.notifier.sentTo(early.Email)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, earlyRes.PickupCode)
}

func TestReturnLoanNotFound(t *testing.T) {
	f := newFixture(t)
	librarian := f.createUser(t, "lib", model.RoleLibrarian)

	_, _, err := f.engine.ReturnLoan(context.Background(), 4242, librarian)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateReservationRejectsAvailableBook(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "On Shelf")

	_, err := f.engine.CreateReservation(context.Background(), book.ID, reader)
	assert.ErrorIs(t, err, ErrBookAvailable)
}

func TestCreateReservationDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	borrower := f.createUser(t, "borrower", model.RoleReader)
	librarian := f.createUser(t, "lib", model.RoleLibrarian)
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "Popular")

	loan, _, err := f.engine.CreateLoan(ctx, book.ID, borrower)
	require.NoError(t, err)

	first, err := f.engine.CreateReservation(ctx, book.ID, reader)
	require.NoError(t, err)
	assert.WithinDuration(t, f.clock.Now().Add(3*24*time.Hour), first.ExpiresAt, time.Second)
	assert.NotEmpty(t, first.PickupCode)

	// A second active reservation on the same (book, user) pair is rejected
	_, err = f.engine.CreateReservation(ctx, book.ID, reader)
	assert.ErrorIs(t, err, ErrDuplicateReservation)

	// After the first expires, a new reservation for the same pair succeeds
	f.clock.Advance(4 * 24 * time.Hour)
	second, err := f.engine.CreateReservation(ctx, book.ID, reader)
	require.NoError(t, err)

	// After a return fulfills the fresh reservation, yet another one succeeds
	_, _, err = f.engine.ReturnLoan(ctx, loan.ID, librarian)
	require.NoError(t, err)
	got, err := f.queries.GetReservationByID(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, got.Fulfilled)

	// Book is available again, so reservations are rejected for that reason
	_, err = f.engine.CreateReservation(ctx, book.ID, reader)
	assert.ErrorIs(t, err, ErrBookAvailable)
}

func TestBookStateStaysLoanedWhenOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader)
	book := f.createBook(t, "Late Book")

	loan, _, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)

	f.clock.Advance(30 * 24 * time.Hour)

	// The per-loan derived flag reports overdue, but the persisted book
	// state is never flipped to the overdue value.
	got, err := f.queries.GetLoanByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOverdue(f.clock.Now()))
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, book.ID))
}

func TestLoanReserveReturnEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userA := f.createUser(t, "usera", model.RoleReader)
	userB := f.createUser(t, "userb", model.RoleReader)
	librarian := f.createUser(t, "lib", model.RoleLibrarian)
	bookX := f.createBook(t, "Book X")

	// A loans X
	loan, warn, err := f.engine.CreateLoan(ctx, bookX.ID, userA)
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.WithinDuration(t, f.clock.Now().Add(14*24*time.Hour), loan.DueDate, time.Second)
	assert.Equal(t, model.BookStateLoaned, f.bookState(t, bookX.ID))

	// B reserves X (not available)
	reservation, err := f.engine.CreateReservation(ctx, bookX.ID, userB)
	require.NoError(t, err)

	// Librarian returns A's loan
	result, warn, err := f.engine.ReturnLoan(ctx, loan.ID, librarian)
	require.NoError(t, err)
	assert.Nil(t, warn)

	assert.Equal(t, model.BookStateAvailable, f.bookState(t, bookX.ID))
	require.NotNil(t, result.Fulfilled)
	assert.Equal(t, reservation.ID, result.Fulfilled.ID)

	// B received the notification request
	sent := f.notifier.sentTo(userB.Email)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "reservation")
}
