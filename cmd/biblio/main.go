// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/biblio-go/internal/config"
	"github.com/olegiv/biblio-go/internal/handler"
	"github.com/olegiv/biblio-go/internal/imaging"
	"github.com/olegiv/biblio-go/internal/lifecycle"
	"github.com/olegiv/biblio-go/internal/logging"
	"github.com/olegiv/biblio-go/internal/middleware"
	"github.com/olegiv/biblio-go/internal/notify"
	"github.com/olegiv/biblio-go/internal/render"
	"github.com/olegiv/biblio-go/internal/scheduler"
	"github.com/olegiv/biblio-go/internal/service"
	"github.com/olegiv/biblio-go/internal/session"
	"github.com/olegiv/biblio-go/internal/store"
	"github.com/olegiv/biblio-go/internal/version"
	"github.com/olegiv/biblio-go/web"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Biblio - Library Management System\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_SESSION_SECRET        Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_DB_PATH               SQLite database path (default: ./data/biblio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_UPLOADS_DIR           Cover upload directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_LOAN_PERIOD_DAYS      Loan duration in days (default: 14)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_RESERVATION_TTL_DAYS  Reservation lifetime in days (default: 3)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_SMTP_HOST             SMTP relay host (notifications are logged when empty)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BIBLIO_DO_SEED               Seed a librarian account and demo catalog (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Get()
		_, _ = fmt.Printf("biblio %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data and upload directories exist
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Pick the notification transport
	var notifier notify.Notifier
	if cfg.SMTPEnabled() {
		notifier, err = notify.NewMailer(notify.MailerConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("initializing mailer: %w", err)
		}
		slog.Info("SMTP notifications enabled", "host", cfg.SMTPHost)
	} else {
		notifier = notify.NewLogNotifier(logger)
		slog.Info("SMTP not configured, notifications will be logged")
	}

	// Lifecycle engine owns all loan and reservation transitions
	engine := lifecycle.New(db, notifier,
		lifecycle.WithLoanPeriod(cfg.LoanPeriod()),
		lifecycle.WithReservationTTL(cfg.ReservationTTL()),
		lifecycle.WithLogger(logger),
	)

	// Start the reminder scheduler
	sched := scheduler.New(db, notifier, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Security middleware
	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("security middleware initialized", "hsts", !cfg.IsDevelopment())

	eventService := service.NewEventService(db)
	processor := imaging.NewProcessor(cfg.UploadsDir)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection)
	bookHandler := handler.NewBookHandler(db, renderer, processor)
	loanHandler := handler.NewLoanHandler(db, renderer, engine)
	reservationHandler := handler.NewReservationHandler(db, renderer, engine)
	authorHandler := handler.NewAuthorHandler(db, renderer)
	categoryHandler := handler.NewCategoryHandler(db, renderer)
	dashboardHandler := handler.NewDashboardHandler(db, renderer)
	reportHandler := handler.NewReportHandler(db)
	healthHandler := handler.NewHealthHandler(db)

	// Create router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(securityConfig))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	// Health check (no CSRF, no session requirements)
	r.Get("/health/db", healthHandler.DBHealth)

	// Public catalog and auth routes
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.OptionalLoadUser(sessionManager, db))

		r.Get(handler.RouteRoot, func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, handler.RouteBooks, http.StatusSeeOther)
		})
		r.Get(handler.RouteBooks, bookHandler.List)
		r.Get(handler.RouteBooksID, bookHandler.Detail)

		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.Post(handler.RouteRegister, authHandler.Register)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Reader routes (any authenticated user)
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))

		r.Post(handler.RouteBooksID+"/loan", loanHandler.Create)
		r.Post(handler.RouteBooksID+"/reserve", reservationHandler.Create)
		r.Get(handler.RouteLoans, loanHandler.My)
		r.Get(handler.RouteReservations, reservationHandler.My)
	})

	// Librarian routes
	r.Route("/manage", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireLibrarianWithEventLog(eventService))

		r.Get(handler.RouteRoot, dashboardHandler.Index)

		r.Get(handler.RouteBooks, bookHandler.ManageList)
		r.Get(handler.RouteBooks+handler.RouteSuffixNew, bookHandler.New)
		r.Post(handler.RouteBooks, bookHandler.Create)
		r.Get(handler.RouteBooksID, bookHandler.Edit)
		r.Post(handler.RouteBooksID, bookHandler.Update)
		r.Post(handler.RouteBooksID+"/delete", bookHandler.Delete)
		r.Post(handler.RouteBooksID+handler.RouteSuffixCover, bookHandler.UploadCover)

		r.Get(handler.RouteAuthors, authorHandler.List)
		r.Get(handler.RouteAuthors+handler.RouteSuffixNew, authorHandler.New)
		r.Post(handler.RouteAuthors, authorHandler.Create)
		r.Get(handler.RouteAuthorsID, authorHandler.Edit)
		r.Post(handler.RouteAuthorsID, authorHandler.Update)
		r.Post(handler.RouteAuthorsID+"/delete", authorHandler.Delete)

		r.Get(handler.RouteCategories, categoryHandler.List)
		r.Post(handler.RouteCategories, categoryHandler.Create)
		r.Post(handler.RouteCategoriesID, categoryHandler.Update)
		r.Post(handler.RouteCategoriesID+"/delete", categoryHandler.Delete)

		r.Get(handler.RouteLoans, loanHandler.Manage)
		r.Post(handler.RouteLoansID+"/return", loanHandler.Return)
		r.Post(handler.RouteLoansID+"/overdue", loanHandler.ToggleOverdue)

		r.Get("/reports/loans/{format}", reportHandler.Loans)
		r.Get("/reports/books/{format}", reportHandler.Books)
		r.Get("/reports/reservations/{format}", reportHandler.Reservations)
	})

	// Static assets from the embedded filesystem
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Uploaded cover images
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
