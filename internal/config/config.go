// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables win over it.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN          string        `env:"DB_DSN" envDefault:"storefront.db"`
	DBConnectRetry time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"15s"`
	IDStrategy     string        `env:"ID_STRATEGY" envDefault:"sequence"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"storefront"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	EventsDriver      string   `env:"EVENTS_DRIVER" envDefault:"none"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic        string   `env:"KAFKA_TOPIC" envDefault:"storefront.events"`
	NATSURL           string   `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubjectPrefix string   `env:"NATS_SUBJECT_PREFIX" envDefault:"storefront"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"no-reply@storefront.local"`

	OTPTTL              time.Duration `env:"OTP_TTL" envDefault:"10m"`
	DefaultUserType     int           `env:"DEFAULT_USER_TYPE" envDefault:"1"`
	CompleteOrderUserID int64         `env:"COMPLETE_ORDER_USER_ID" envDefault:"1"`
	OrderPolicy         string        `env:"ORDER_POLICY" envDefault:"user-type"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL" envDefault:"http://localhost:8080/api/auth/github/callback"`
	FrontendURL        string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// DisplayTimezone is the IANA zone order summaries are rendered in.
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"UTC"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch c.EventsDriver {
	case "none", "kafka", "nats":
	default:
		return fmt.Errorf("config: EVENTS_DRIVER must be none, kafka or nats, got %q", c.EventsDriver)
	}
	switch c.OrderPolicy {
	case "user-type", "allow-all":
	default:
		return fmt.Errorf("config: ORDER_POLICY must be user-type or allow-all, got %q", c.OrderPolicy)
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("config: DISPLAY_TIMEZONE: %w", err)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Location returns the display time zone. validate has already checked it
// loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
