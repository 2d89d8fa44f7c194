// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

// Package web provides the HTTP surface of the user directory: registration,
// login, password recovery and change, and the session-gated record views.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/internal/auth"
	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/observability"
)

// sessionCookie is the name of the session token cookie.
const sessionCookie = "rosterd_session"

// Server is the HTTP server for the user directory.
type Server struct {
	directory *directory.Service
	auth      *auth.Service
	recovery  *auth.RecoveryService
	metrics   *observability.Metrics
	logger    *slog.Logger
	router    *gin.Engine
	server    *http.Server
	addr      string
}

// NewServer creates the web server. metrics may be nil when no observability
// server is running.
func NewServer(
	addr string,
	dirSvc *directory.Service,
	authSvc *auth.Service,
	recoverySvc *auth.RecoveryService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*Server, error) {
	if dirSvc == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("directory service is required")
	}
	if authSvc == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("auth service is required")
	}
	if recoverySvc == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("recovery service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		directory: dirSvc,
		auth:      authSvc,
		recovery:  recoverySvc,
		metrics:   metrics,
		logger:    logger,
		router:    router,
		addr:      addr,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// setupRoutes wires the route surface. Gated routes redirect unauthenticated
// callers to the login entry point before any state mutation.
func (s *Server) setupRoutes() {
	guard := s.requireSession()

	s.router.GET("/", guard, s.home)

	s.router.GET("/register", s.registerForm)
	s.router.POST("/registerform", s.register)

	s.router.GET("/login", s.loginForm)
	s.router.POST("/login", s.login)

	s.router.GET("/forgot-password", s.forgotPasswordForm)
	s.router.POST("/forgot-password", s.forgotPassword)

	s.router.GET("/reset-password", s.resetPasswordForm)
	s.router.POST("/reset-password", s.resetPassword)

	s.router.GET("/change-password", guard, s.changePasswordForm)
	s.router.POST("/change-password", guard, s.changePassword)

	s.router.GET("/display", guard, s.display)
	s.router.GET("/show/:id", s.show)
	s.router.GET("/edit/:id", s.editForm)
	s.router.POST("/edit/:id", s.edit)
	s.router.POST("/delete/:id", guard, s.deleteRecord)

	s.router.GET("/logout", s.logout)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server started", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return oops.Code("WEB_SERVE_FAILED").With("addr", s.addr).Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}
