// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/biblio-go/internal/auth"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/model"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/store"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = "user_id"

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Already-authenticated users are sent
// to the catalog.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, RouteBooks, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", templateData(r, "Sign In", nil)); err != nil {
		logAndInternalError(w, "render login form", "error", err)
	}
}

// Login handles the login form submission. The login field accepts either
// an email address or a username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	login := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")

	if login == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Login and password are required")
		return
	}

	clientIP := r.RemoteAddr

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(login); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login attempt on locked account", nil, clientIP, map[string]any{"login": login})
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Account temporarily locked, try again in %s", formatDuration(remaining)))
			return
		}
	}

	user, err := h.queries.GetUserByLogin(r.Context(), login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "login", login)
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Login failed: user not found", nil, clientIP, map[string]any{"login": login})
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users to prevent enumeration
		h.recordFailure(w, r, login)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Invalid credentials")
		return
	}

	if !valid {
		slog.Debug("invalid password attempt", "login", login)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
			"Login failed: invalid password", &user.ID, clientIP, map[string]any{"login": login})
		h.recordFailure(w, r, login)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(login)
	}

	// Re-hash password if it uses old/expensive parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), time.Now(), user.ID); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo,
		"User logged in", &user.ID, clientIP, map[string]any{"email": user.Email})

	h.renderer.SetFlash(r, fmt.Sprintf("Welcome back, %s", user.DisplayName()), "success")

	if user.Role == model.RoleLibrarian {
		http.Redirect(w, r, redirectManage, http.StatusSeeOther)
	} else {
		http.Redirect(w, r, RouteBooks, http.StatusSeeOther)
	}
}

// recordFailure records a failed login attempt and redirects with the
// appropriate error message.
func (h *AuthHandler) recordFailure(w http.ResponseWriter, r *http.Request, login string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(login); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning,
				"Account locked due to failed attempts", nil, r.RemoteAddr,
				map[string]any{"login": login, "duration": lockDuration.String()})
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts, locked for %s", formatDuration(lockDuration)))
			return
		}
		remaining := h.loginProtection.GetRemainingAttempts(login)
		if remaining <= 3 && remaining > 0 {
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Invalid credentials, %d attempts remaining", remaining))
			return
		}
	}
	flashError(w, r, h.renderer, redirectLogin, "Invalid credentials")
}

// RegisterForm renders the reader registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, RouteBooks, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/register", templateData(r, "Register", nil)); err != nil {
		logAndInternalError(w, "render register form", "error", err)
	}
}

// Register creates a new reader account. Librarian accounts are never
// created through self-registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	username := strings.TrimSpace(r.FormValue("username"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")

	if email == "" || username == "" || password == "" {
		flashError(w, r, h.renderer, RouteRegister, "Email, username and password are required")
		return
	}
	if !strings.Contains(email, "@") {
		flashError(w, r, h.renderer, RouteRegister, "Invalid email address")
		return
	}
	if len(password) < 8 {
		flashError(w, r, h.renderer, RouteRegister, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "password hashing failed", "error", err)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleReader,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// Unique constraint on email or username
		flashError(w, r, h.renderer, RouteRegister, "An account with that email or username already exists")
		return
	}

	slog.Info("reader registered", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo,
		"Reader registered", &user.ID, r.RemoteAddr, map[string]any{"email": user.Email})

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	flashSuccess(w, r, h.renderer, RouteBooks, "Welcome to the library")
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID)

	// Log the event before destroying the session
	if userID > 0 {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo,
			"User logged out", &userID, r.RemoteAddr, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been signed out", "info")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
