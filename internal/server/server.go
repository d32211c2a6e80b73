// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main.go hands over config and a logger, and
// everything else — database, services, handlers — is wired here in one
// place. Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handler layer
// knows HTTP exists.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/mindgarden/internal/auth"
	"github.com/sakif/mindgarden/internal/config"
	"github.com/sakif/mindgarden/internal/handler"
	"github.com/sakif/mindgarden/internal/middleware"
	sqliteRepo "github.com/sakif/mindgarden/internal/repository/sqlite"
	"github.com/sakif/mindgarden/internal/service"
)

// Server owns the router, the database connection and the background sweeper.
// The database is closed during graceful shutdown so the WAL is flushed and
// the file lock released.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	sweeper *service.OTPSweeper // nil when sweeping is disabled
}

// New assembles the dependency graph and registers all routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes()

	if cfg.OTPSweepInterval > 0 {
		s.sweeper = service.NewOTPSweeper(db, cfg.OTPSweepInterval, logger)
	}

	return s, nil
}

// setupRoutes configures middleware and the route table.
//
//	POST  /v1/users/sign-up
//	POST  /v1/users/sign-in
//	POST  /v1/users/verify-otp
//	GET   /v1/users/{userId}
//	POST  /v1/users/update
//	POST  /v1/users/update-name
//	POST  /v1/tasks/create
//	PATCH /v1/tasks/complete/{taskId}
//	POST  /v1/tasks/today-tasks
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authService := service.NewAuthService(
		s.db, s.db, s.db,
		auth.NewPasswordService(),
		s.config.OTPTTL,
		s.logger,
	)
	taskService := service.NewTaskService(s.db, authService, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	s.router.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/sign-up", authHandler.HandleSignUp)
			r.Post("/sign-in", authHandler.HandleSignIn)
			r.Post("/verify-otp", authHandler.HandleVerifyOTP)
			r.Post("/update", authHandler.HandleUpdate)
			r.Post("/update-name", authHandler.HandleUpdateName)
			r.Get("/{userId}", authHandler.HandleGetUser)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/create", taskHandler.HandleCreate)
			r.Patch("/complete/{taskId}", taskHandler.HandleComplete)
			r.Post("/today-tasks", taskHandler.HandleTodayTasks)
		})
	})
}

// Start runs the HTTP server (and the OTP sweeper, if enabled) until SIGINT
// or SIGTERM, then shuts down gracefully: stop accepting connections, drain
// in-flight requests, stop the sweeper, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if s.sweeper != nil {
		go s.sweeper.Run(sweepCtx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
