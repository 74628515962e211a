// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"BIBLIO_DB_PATH" envDefault:"./data/biblio.db"`
	SessionSecret string `env:"BIBLIO_SESSION_SECRET,required"`
	ServerHost    string `env:"BIBLIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"BIBLIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"BIBLIO_ENV" envDefault:"development"`
	LogLevel      string `env:"BIBLIO_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"BIBLIO_UPLOADS_DIR" envDefault:"./uploads"`

	// Lending policy
	LoanPeriodDays     int `env:"BIBLIO_LOAN_PERIOD_DAYS" envDefault:"14"`
	ReservationTTLDays int `env:"BIBLIO_RESERVATION_TTL_DAYS" envDefault:"3"`

	// SMTP configuration. When SMTPHost is empty, notifications are logged
	// instead of delivered.
	SMTPHost     string `env:"BIBLIO_SMTP_HOST"`
	SMTPPort     int    `env:"BIBLIO_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"BIBLIO_SMTP_USERNAME"`
	SMTPPassword string `env:"BIBLIO_SMTP_PASSWORD"`
	SMTPFrom     string `env:"BIBLIO_SMTP_FROM" envDefault:"noreply@biblioteca.com"`

	// Seeding configuration
	DoSeed bool `env:"BIBLIO_DO_SEED" envDefault:"false"` // Enable database seeding
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SMTPEnabled returns true if an SMTP relay is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// LoanPeriod returns the loan duration derived from LoanPeriodDays.
func (c Config) LoanPeriod() time.Duration {
	return time.Duration(c.LoanPeriodDays) * 24 * time.Hour
}

// ReservationTTL returns the reservation lifetime derived from ReservationTTLDays.
func (c Config) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLDays) * 24 * time.Hour
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("BIBLIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if cfg.LoanPeriodDays <= 0 {
		return nil, fmt.Errorf("BIBLIO_LOAN_PERIOD_DAYS must be positive, got %d", cfg.LoanPeriodDays)
	}
	if cfg.ReservationTTLDays <= 0 {
		return nil, fmt.Errorf("BIBLIO_RESERVATION_TTL_DAYS must be positive, got %d", cfg.ReservationTTLDays)
	}

	return cfg, nil
}
