package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          int      `env:"PORT" envDefault:"4001"`
	Env           string   `env:"APP_ENV" envDefault:"development"`
	JWTSecret     string   `env:"JWT_SECRET"`
	DatabaseURL   string   `env:"DATABASE_URL"`
	DBMaxConns    int32    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32    `env:"DB_MIN_CONNS" envDefault:"2"`
	EncryptionKey string   `env:"ENCRYPTION_KEY"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173,https://hub.conexx.com.br" envSeparator:","`
	AdminEmail    string   `env:"ADMIN_EMAIL" envDefault:"admin@conexx.com.br"`
	AdminPassword string   `env:"ADMIN_PASSWORD" envDefault:"admin123"`
	// RedisURL enables the scheduler lease when running several replicas.
	RedisURL string `env:"REDIS_URL"`

	Asaas   AsaasConfig
	Billing BillingConfig
	Google  GoogleConfig
}

// AsaasConfig configures the payment provider client and webhook check.
type AsaasConfig struct {
	APIKey       string        `env:"ASAAS_API_KEY"`
	BaseURL      string        `env:"ASAAS_BASE_URL" envDefault:"https://sandbox.asaas.com/api/v3"`
	WebhookToken string        `env:"ASAAS_WEBHOOK_TOKEN"`
	Timeout      time.Duration `env:"ASAAS_TIMEOUT" envDefault:"15s"`
}

// BillingConfig controls weekly fee windows and charges.
type BillingConfig struct {
	Timezone string `env:"BILLING_TIMEZONE" envDefault:"America/Sao_Paulo"`
	DueDays  int    `env:"FEE_DUE_DAYS" envDefault:"3"`
	// ScheduleInterval is how often pending fees are recalculated. Zero (the default) disables it.
	ScheduleInterval time.Duration `env:"FEE_SCHEDULE_INTERVAL" envDefault:"0s"`
}

// GoogleConfig holds the OAuth client used for the analytics integration.
// The integration is disabled when ClientID is empty.
type GoogleConfig struct {
	ClientID     string `env:"GA_CLIENT_ID"`
	ClientSecret string `env:"GA_CLIENT_SECRET"`
	RedirectURL  string `env:"GA_REDIRECT_URL" envDefault:"http://localhost:4001/api/integrations/google/callback"`
	// ReturnURL is where the browser lands after a completed callback.
	ReturnURL string `env:"GA_RETURN_URL"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (must be exactly 32 bytes)")
	}
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}
	if cfg.Asaas.APIKey == "" {
		return nil, fmt.Errorf("ASAAS_API_KEY is required")
	}
	if cfg.Billing.DueDays < 1 {
		return nil, fmt.Errorf("FEE_DUE_DAYS must be at least 1, got %d", cfg.Billing.DueDays)
	}
	if cfg.Billing.ScheduleInterval < 0 {
		return nil, fmt.Errorf("FEE_SCHEDULE_INTERVAL must not be negative, got %s", cfg.Billing.ScheduleInterval)
	}
	if _, err := time.LoadLocation(cfg.Billing.Timezone); err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE %q: %w", cfg.Billing.Timezone, err)
	}

	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	return &cfg, nil
}

// Location returns the billing time zone. Load has already validated it.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
