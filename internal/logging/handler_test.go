// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/store"
	"github.com/olegiv/biblio-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestEventLogHandlerErrorLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Error("database connection failed", "host", "localhost")

	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventLevelError, events[0].Level)
	assert.Equal(t, "database connection failed", events[0].Message)
	assert.Contains(t, events[0].Metadata, `"host":"localhost"`)
}

func TestEventLogHandlerInfoNotStored(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Info("routine request served")

	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventLogHandlerCategoryAttribute(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("stale pickup code purged", "category", model.EventCategoryReservation)

	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryReservation, events[0].Category)
	assert.Equal(t, model.EventLevelWarning, events[0].Level)
}

func TestEventLogHandlerInferredCategory(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Warn("loan overdue flag set manually")

	events, err := store.New(db).ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryLoan, events[0].Category)
}
