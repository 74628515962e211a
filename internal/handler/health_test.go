// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/testutil"
)

func TestDBHealthOK(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	h := NewHealthHandler(db)
	w := httptest.NewRecorder()
	h.DBHealth(w, httptest.NewRequest(http.MethodGet, "/health/db", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Database)
	assert.NotEmpty(t, status.Version)
}

func TestDBHealthDegraded(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	cleanup() // closed database fails the ping

	h := NewHealthHandler(db)
	w := httptest.NewRecorder()
	h.DBHealth(w, httptest.NewRequest(http.MethodGet, "/health/db", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unreachable", status.Database)
}
