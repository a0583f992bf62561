// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects services, handlers,
// middleware and routes. Infrastructure (database, Redis, broker, mailer) is
// built by main and handed in through Deps, so tests can run the full router
// over an in-memory store.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go creates: config → sqlstore.DB, RevocationStore, Publisher, Mailer
//	Server.New creates: services (Customer, Catalog, Order, Notification, OTP, Auth)
//	                    → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/handler"
	"github.com/sakif/storefront/internal/mailer"
	"github.com/sakif/storefront/internal/middleware"
	"github.com/sakif/storefront/internal/repository/sqlstore"
	"github.com/sakif/storefront/internal/service"
)

// Config holds the server settings that are not dependencies.
type Config struct {
	Port                string
	DefaultUserType     int
	CompleteOrderUserID int64
	OTPTTL              time.Duration
	FrontendURL         string
	// Location is the time zone order summaries are rendered in.
	Location *time.Location
}

// Deps are the infrastructure components built by main. GitHub and Policy
// may be nil; everything else is required.
type Deps struct {
	DB          *sqlstore.DB
	Tokens      *auth.TokenService
	Passwords   *auth.PasswordService
	Revocations auth.RevocationStore
	Publisher   events.Publisher
	Mailer      mailer.Mailer
	GitHub      *auth.GitHubProvider
	Policy      service.OrderPolicy

	// Closers are released after the HTTP server stops, in order.
	Closers []io.Closer
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and every closer in Deps. They are
// closed after in-flight requests finish during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New assembles services and handlers over deps and registers all routes.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("server: database is required")
	case deps.Tokens == nil || deps.Passwords == nil || deps.Revocations == nil:
		return nil, errors.New("server: token, password and revocation services are required")
	case deps.Mailer == nil:
		return nil, errors.New("server: mailer is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewLogPublisher(logger)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                                   → database ping
//	POST   /api/auth/register | /api/auth/login       → public
//	GET    /api/auth/github/login | callback          → public, only when configured
//	POST   /api/otp/send | /api/otp/verify            → public
//	POST   /api/orders/complete                       → public
//	GET    /api/catalog/...                           → public, active products only
//	*      everything else under /api                 → RequireAuth
//	PATCH  /api/{products,categories,suppliers}/{key} → partial update (PUT accepted too)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID must precede Logger so each log line carries the id.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	db := s.deps.DB
	customers := service.NewCustomerService(db, s.logger)
	catalog := service.NewCatalogService(db, db, db, s.logger)
	notifications := service.NewNotificationService(db, s.deps.Publisher, s.logger)
	otp := service.NewOTPService(db, db, s.deps.Mailer, s.config.OTPTTL, s.logger)
	authSvc := service.NewAuthService(db, customers, s.deps.Tokens, s.deps.Passwords, s.deps.Revocations, s.config.DefaultUserType, s.logger)
	orders := service.NewOrderService(service.OrderDeps{
		Orders:          db,
		Products:        db,
		Users:           db,
		Customers:       customers,
		Notifications:   notifications,
		Passwords:       s.deps.Passwords,
		Policy:          s.deps.Policy,
		Publisher:       s.deps.Publisher,
		Logger:          s.logger,
		DefaultUserType: s.config.DefaultUserType,
		Location:        s.config.Location,
	})

	authHandler := handler.NewAuthHandler(authSvc, s.deps.GitHub, s.config.FrontendURL, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalog, s.logger)
	orderHandler := handler.NewOrderHandler(orders, s.config.CompleteOrderUserID, s.logger)
	notificationHandler := handler.NewNotificationHandler(notifications, otp, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// === Public ===
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		if s.deps.GitHub != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Post("/otp/send", notificationHandler.HandleSendOTP)
		r.Post("/otp/verify", notificationHandler.HandleVerifyOTP)

		r.Post("/orders/complete", orderHandler.HandleCreateComplete)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", catalogHandler.HandlePublicList)
			r.Get("/products/{id}", catalogHandler.HandlePublicGet)
			r.Get("/products/category/{categoryID}", catalogHandler.HandleByCategory)
			r.Get("/categories", catalogHandler.HandleListCategories)
		})

		// === Authenticated ===
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authSvc))

			r.Get("/auth/profile", authHandler.HandleProfile)
			r.Post("/auth/logout", authHandler.HandleLogout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.HandleList)
				r.Post("/", orderHandler.HandleCreate)
				r.Get("/{id}", orderHandler.HandleGet)
				r.Put("/{id}/status", orderHandler.HandleUpdateStatus)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogHandler.HandleListProducts)
				r.Post("/", catalogHandler.HandleCreateProduct)
				r.Get("/category/{categoryID}", catalogHandler.HandleByCategory)
				r.Get("/supplier/{rut}", catalogHandler.HandleBySupplier)
				r.Get("/{id}", catalogHandler.HandleGetProduct)
				r.Patch("/{id}", catalogHandler.HandleUpdateProduct)
				r.Put("/{id}", catalogHandler.HandleUpdateProduct)
				r.Delete("/{id}", catalogHandler.HandleDeleteProduct)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", catalogHandler.HandleListCategories)
				r.Post("/", catalogHandler.HandleCreateCategory)
				r.Get("/{id}", catalogHandler.HandleGetCategory)
				r.Patch("/{id}", catalogHandler.HandleUpdateCategory)
				r.Put("/{id}", catalogHandler.HandleUpdateCategory)
				r.Delete("/{id}", catalogHandler.HandleDeleteCategory)
			})

			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", catalogHandler.HandleListSuppliers)
				r.Post("/", catalogHandler.HandleCreateSupplier)
				r.Get("/{rut}", catalogHandler.HandleGetSupplier)
				r.Patch("/{rut}", catalogHandler.HandleUpdateSupplier)
				r.Put("/{rut}", catalogHandler.HandleUpdateSupplier)
				r.Delete("/{rut}", catalogHandler.HandleDeleteSupplier)
			})

			r.Post("/notifications", notificationHandler.HandleCreate)
			r.Get("/customers/{rut}/notifications", notificationHandler.HandleListByCustomer)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.deps.DB.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the closers (publisher flush, Redis) and then the database
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", "http://localhost:"+s.config.Port),
			slog.String("database", s.deps.DB.Dialect()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	for _, c := range s.deps.Closers {
		if err := c.Close(); err != nil {
			s.logger.Warn("closing dependency", slog.String("error", err.Error()))
		}
	}
	if err := s.deps.DB.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
