// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/model"
)

func TestDashboardCounts(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	reader := f.createUser(t, "ana", model.RoleReader, "correct-horse-42")
	f.createUser(t, "marta", model.RoleLibrarian, "correct-horse-42")
	book := f.createBook(t, "Rayuela")
	f.createBook(t, "Ficciones")
	h := NewDashboardHandler(f.db, f.renderer)

	_, _, err := f.engine.CreateLoan(ctx, book.ID, reader)
	require.NoError(t, err)

	w := f.do(h.Index, httptest.NewRequest(http.MethodGet, redirectManage, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "books=2")
	// Librarians are not counted as readers
	assert.Contains(t, body, "readers=1")
	assert.Contains(t, body, "open=1")
}
