// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
)

func loginForm(login, password string) url.Values {
	return url.Values{"login": {login}, "password": {password}}
}

func TestLoginReaderRedirectsToCatalog(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "ana", model.RoleReader, "correct-horse-42")
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Login, formRequest(RouteLogin, loginForm("ana", "correct-horse-42")))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, RouteBooks, w.Header().Get("Location"))
}

func TestLoginLibrarianRedirectsToManage(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "marta", model.RoleLibrarian, "correct-horse-42")
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	// The login field accepts the email address too
	w := f.do(h.Login, formRequest(RouteLogin, loginForm("marta@example.com", "correct-horse-42")))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, redirectManage, w.Header().Get("Location"))
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	f := newHandlerFixture(t)
	user := f.createUser(t, "ana", model.RoleReader, "correct-horse-42")
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	f.do(h.Login, formRequest(RouteLogin, loginForm("ana", "correct-horse-42")))

	updated, err := f.queries.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, updated.LastLoginAt.Valid)
	assert.WithinDuration(t, time.Now(), updated.LastLoginAt.Time, 5*time.Second)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "ana", model.RoleReader, "correct-horse-42")
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Login, formRequest(RouteLogin, loginForm("ana", "wrong")))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, redirectLogin, w.Header().Get("Location"))
}

func TestLoginUnknownUser(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Login, formRequest(RouteLogin, loginForm("ghost", "whatever123")))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, redirectLogin, w.Header().Get("Location"))
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "ana", model.RoleReader, "correct-horse-42")

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000, // keep the IP limiter out of the way
		IPBurst:           1000,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, lp)

	for i := 0; i < 3; i++ {
		f.do(h.Login, formRequest(RouteLogin, loginForm("ana", "wrong")))
	}

	locked, remaining := lp.IsAccountLocked("ana")
	assert.True(t, locked)
	assert.Greater(t, remaining, time.Duration(0))

	// Even the correct password is refused while locked
	w := f.do(h.Login, formRequest(RouteLogin, loginForm("ana", "correct-horse-42")))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, redirectLogin, w.Header().Get("Location"))
}

func TestRegisterCreatesReader(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Register, formRequest(RouteRegister, url.Values{
		"email":    {"New.Reader@Example.com"},
		"username": {"newreader"},
		"name":     {"New Reader"},
		"password": {"long-enough-pass"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, RouteBooks, w.Header().Get("Location"))

	user, err := f.queries.GetUserByLogin(context.Background(), "newreader")
	require.NoError(t, err)
	assert.Equal(t, model.RoleReader, user.Role)
	assert.Equal(t, "new.reader@example.com", user.Email)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Register, formRequest(RouteRegister, url.Values{
		"email":    {"short@example.com"},
		"username": {"short"},
		"password": {"tiny"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, RouteRegister, w.Header().Get("Location"))

	_, err := f.queries.GetUserByLogin(context.Background(), "short")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "ana", model.RoleReader, "correct-horse-42")
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.Register, formRequest(RouteRegister, url.Values{
		"email":    {"ana@example.com"},
		"username": {"ana2"},
		"password": {"long-enough-pass"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, RouteRegister, w.Header().Get("Location"))
}

func TestLoginFormRendersForAnonymous(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAuthHandler(f.db, f.renderer, f.sessionManager, nil)

	w := f.do(h.LoginForm, httptest.NewRequest(http.MethodGet, RouteLogin, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "login form")
}
