// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/biblio-go/internal/model"
)

func requestWithUser(role string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/manage/loans", nil)
	user := model.User{ID: 7, Email: "staff@example.com", Role: role}
	return r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user))
}

func TestRequireLibrarianAllowsLibrarian(t *testing.T) {
	called := false
	h := RequireLibrarian()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser(model.RoleLibrarian))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireLibrarianForbidsReader(t *testing.T) {
	h := RequireLibrarian()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser(model.RoleReader))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRedirectsAnonymous(t *testing.T) {
	h := RequireRole(model.RoleReader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireRoleReaderAllowsLibrarian(t *testing.T) {
	called := false
	h := RequireRole(model.RoleReader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithUser(model.RoleLibrarian))

	assert.True(t, called)
}

func TestGetUserAbsent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetUser(r))
	assert.Zero(t, GetUserID(r))
	assert.Nil(t, GetUserIDPtr(r))
}

func TestGetUserPresent(t *testing.T) {
	r := requestWithUser(model.RoleReader)
	user := GetUser(r)
	assert.NotNil(t, user)
	assert.EqualValues(t, 7, user.ID)
	assert.EqualValues(t, 7, GetUserID(r))
}

func TestRequestPath(t *testing.T) {
	var got string
	h := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/42", nil))

	assert.Equal(t, "/books/42", got)
}
