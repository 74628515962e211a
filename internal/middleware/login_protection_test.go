// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginProtectionLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	locked, _ := lp.IsAccountLocked("reader@example.com")
	assert.False(t, locked)

	lp.RecordFailedAttempt("reader@example.com")
	lp.RecordFailedAttempt("reader@example.com")
	assert.Equal(t, 1, lp.GetRemainingAttempts("reader@example.com"))

	nowLocked, duration := lp.RecordFailedAttempt("reader@example.com")
	assert.True(t, nowLocked)
	assert.Equal(t, time.Minute, duration)

	locked, remaining := lp.IsAccountLocked("reader@example.com")
	assert.True(t, locked)
	assert.Greater(t, remaining, time.Duration(0))
}

func TestLoginProtectionSuccessClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{MaxFailedAttempts: 3})

	lp.RecordFailedAttempt("reader@example.com")
	lp.RecordFailedAttempt("reader@example.com")
	lp.RecordSuccessfulLogin("reader@example.com")

	assert.Equal(t, 3, lp.GetRemainingAttempts("reader@example.com"))
}

func TestLoginProtectionExponentialBackoff(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 1,
		LockoutDuration:   time.Minute,
	})

	_, first := lp.RecordFailedAttempt("reader@example.com")
	assert.Equal(t, time.Minute, first)

	_, second := lp.RecordFailedAttempt("reader@example.com")
	assert.Equal(t, 2*time.Minute, second)
}

func TestLoginProtectionTracksAccountsIndependently(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{MaxFailedAttempts: 2})

	lp.RecordFailedAttempt("a@example.com")
	assert.Equal(t, 2, lp.GetRemainingAttempts("b@example.com"))
}
