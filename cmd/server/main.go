// Package main is the entry point for the storefront API server.
//
// MAIN PACKAGE IN GO:
// main is kept minimal. Its job is to:
//  1. Read configuration (environment, optionally a .env file)
//  2. Create infrastructure (logger, database, Redis, broker, mailer)
//  3. Hand everything to internal/server and start it
//
// All actual logic lives in imported packages (internal/server, internal/service, ...).
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/config"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/idgen"
	"github.com/sakif/storefront/internal/mailer"
	"github.com/sakif/storefront/internal/redisx"
	"github.com/sakif/storefront/internal/repository/sqlstore"
	"github.com/sakif/storefront/internal/server"
	"github.com/sakif/storefront/internal/service"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text for humans in development, JSON for log shippers in production.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Everything opened below is closed by the server on shutdown, or here if
	// startup fails part way.
	var closers []io.Closer
	fail := func(err error) error {
		for _, c := range closers {
			c.Close()
		}
		return err
	}

	// === 3. DATABASE ===
	ids, err := idgen.New(cfg.IDStrategy)
	if err != nil {
		return err
	}
	db, err := sqlstore.Open(ctx, sqlstore.Options{
		Dialect:        cfg.DBDriver,
		DSN:            cfg.DBDSN,
		Allocator:      ids,
		ConnectTimeout: cfg.DBConnectRetry,
	})
	if err != nil {
		return err
	}
	logger.Info("database ready", slog.String("driver", cfg.DBDriver), slog.String("ids", cfg.IDStrategy))

	// === 4. AUTH ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		db.Close()
		return err
	}
	tokens.WithIssuer(cfg.JWTIssuer)

	// Logout revocations live in Redis when configured so they survive
	// restarts and are shared between replicas.
	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, redisx.Options{
			Addr:           cfg.RedisAddr,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			ConnectTimeout: cfg.DBConnectRetry,
		})
		if err != nil {
			db.Close()
			return err
		}
		closers = append(closers, rdb)
		revocations = redisx.NewRevocationStore(rdb)
		logger.Info("token revocation backed by redis", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set; revoked tokens are kept in memory")
	}

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	// === 5. EVENTS ===
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		db.Close()
		return fail(err)
	}
	closers = append(closers, publisher)

	// === 6. MAIL ===
	var m mailer.Mailer = mailer.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		m = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn("SMTP_HOST not set; OTP mails are written to the log")
	}

	// === 7. ORDER POLICY ===
	var policy service.OrderPolicy
	if cfg.OrderPolicy == "allow-all" {
		policy = service.AllowAllPolicy{}
	}

	// === 8. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:                cfg.Port,
		DefaultUserType:     cfg.DefaultUserType,
		CompleteOrderUserID: cfg.CompleteOrderUserID,
		OTPTTL:              cfg.OTPTTL,
		FrontendURL:         cfg.FrontendURL,
		Location:            cfg.Location(),
	}, server.Deps{
		DB:          db,
		Tokens:      tokens,
		Passwords:   auth.NewPasswordService(),
		Revocations: revocations,
		Publisher:   publisher,
		Mailer:      m,
		GitHub:      github,
		Policy:      policy,
		Closers:     closers,
	}, logger)
	if err != nil {
		db.Close()
		return fail(err)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case "kafka":
		logger.Info("publishing events to kafka", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 256, logger), nil
	case "nats":
		p, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		logger.Info("publishing events to nats", slog.String("url", cfg.NATSURL))
		return p, nil
	default:
		return events.NewLogPublisher(logger), nil
	}
}
