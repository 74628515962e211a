// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/auth"
	"github.com/olegiv/biblio-go/internal/lifecycle"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/store"
	"github.com/olegiv/biblio-go/internal/testutil"
)

// testTemplates builds a minimal template tree that exposes the data each
// handler passes in, so assertions can read it back from the response body.
func testTemplates() fstest.MapFS {
	page := func(body string) *fstest.MapFile {
		return &fstest.MapFile{Data: []byte(`{{define "content"}}` + body + `{{end}}`)}
	}
	return fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{define "base"}}{{.Title}}|{{.FlashType}}:{{.Flash}}|{{template "content" .}}{{end}}{{define "content"}}{{end}}`),
		},
		"site/books.html":           page(`{{range .Data.Books}}[{{.Title}}]{{end}}`),
		"site/book_detail.html":     page(`{{.Data.Book.Title}} canloan={{.Data.CanLoan}} canreserve={{.Data.CanReserve}} sanction={{.Data.SanctionActive}}`),
		"site/my_loans.html":        page(`{{range .Data.Loans}}loan:{{.BookTitle}};{{end}}`),
		"site/my_reservations.html": page(`{{range .Data.Reservations}}res:{{.BookTitle}};{{end}}`),
		"manage/dashboard.html":     page(`books={{.Data.TotalBooks}} readers={{.Data.TotalReaders}} open={{.Data.OpenLoans}}`),
		"manage/books.html":         page(`{{range .Data.Books}}[{{.Title}}]{{end}}`),
		"manage/book_form.html":     page(`book form`),
		"manage/authors.html":       page(`{{range .Data.Authors}}[{{.LastName}}]{{end}}`),
		"manage/author_form.html":   page(`author form`),
		"manage/categories.html":    page(`{{range .Data.Categories}}[{{.Name}}]{{end}}`),
		"manage/loans.html":         page(`{{len .Data.Loans}} loans`),
		"auth/login.html":           page(`login form`),
		"auth/register.html":        page(`register form`),
	}
}

type handlerFixture struct {
	db             *sql.DB
	queries        *store.Queries
	sessionManager *scs.SessionManager
	renderer       *render.Renderer
	engine         *lifecycle.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := scs.New()
	renderer, err := render.New(render.Config{
		TemplatesFS:    testTemplates(),
		SessionManager: sm,
	})
	require.NoError(t, err)

	return &handlerFixture{
		db:             db,
		queries:        store.New(db),
		sessionManager: sm,
		renderer:       renderer,
		engine:         lifecycle.New(db, nil, lifecycle.WithLogger(testutil.TestLogger())),
	}
}

// do serves the request through the session middleware so handlers can use
// flash messages and session state.
func (f *handlerFixture) do(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.sessionManager.LoadAndSave(h).ServeHTTP(w, r)
	return w
}

func (f *handlerFixture) createUser(t *testing.T, username, role, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	now := time.Now()
	u, err := f.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Name:         username,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return &u
}

func (f *handlerFixture) createBook(t *testing.T, title string) model.Book {
	t.Helper()
	ctx := context.Background()
	author, err := f.queries.CreateAuthor(ctx, store.CreateAuthorParams{
		FirstName: "Test", LastName: "Author",
	})
	require.NoError(t, err)

	now := time.Now()
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

func (f *handlerFixture) bookState(t *testing.T, id int64) string {
	t.Helper()
	book, err := f.queries.GetBookByID(context.Background(), id)
	require.NoError(t, err)
	return book.State
}

// withUser attaches a user to the request context the way LoadUser does.
func withUser(r *http.Request, user *model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, *user)
	return r.WithContext(ctx)
}

// withIDParam attaches a chi route context carrying the {id} parameter.
func withIDParam(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// formRequest builds a POST request with an urlencoded form body.
func formRequest(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set(HeaderContentType, "application/x-www-form-urlencoded")
	return r
}
