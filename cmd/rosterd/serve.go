// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rosterd/rosterd/internal/auth"
	authpg "github.com/rosterd/rosterd/internal/auth/postgres"
	"github.com/rosterd/rosterd/internal/config"
	"github.com/rosterd/rosterd/internal/directory"
	directorypg "github.com/rosterd/rosterd/internal/directory/postgres"
	"github.com/rosterd/rosterd/internal/logging"
	"github.com/rosterd/rosterd/internal/mail"
	"github.com/rosterd/rosterd/internal/observability"
	"github.com/rosterd/rosterd/internal/store"
	"github.com/rosterd/rosterd/internal/web"
)

// Default values for serve command flags.
const (
	defaultListenAddr  = ":8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultBaseURL     = "http://localhost:8080"
	defaultLogFormat   = "json"
	defaultSMTPPort    = 587
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the directory HTTP server",
		Long: `Start the HTTP server that serves registration, login, password
recovery and the session-gated user record views.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen-addr", defaultListenAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("base-url", defaultBaseURL, "externally reachable URL prefix for mailed links")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("smtp-host", "", "SMTP host for outbound mail")
	cmd.Flags().Int("smtp-port", defaultSMTPPort, "SMTP port")
	cmd.Flags().Bool("smtp-secure", false, "use implicit TLS for SMTP (STARTTLS otherwise)")
	cmd.Flags().String("smtp-username", "", "SMTP username")
	cmd.Flags().String("smtp-from", "", "From address for outbound mail")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("rosterd", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	userRepo := directorypg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)
	resetRepo := authpg.NewPasswordResetRepository(pool)

	hasher := auth.NewArgon2idHasher()

	dirSvc, err := directory.NewService(userRepo, hasher)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(userRepo, sessionRepo, hasher)
	if err != nil {
		return err
	}

	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Secure:   cfg.SMTP.Secure,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	if err != nil {
		return err
	}

	recoverySvc, err := auth.NewRecoveryService(userRepo, resetRepo, hasher, mailer, cfg.BaseURL, logger)
	if err != nil {
		return err
	}

	// Start observability server if configured
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	server, err := web.NewServer(cfg.ListenAddr, dirSvc, authSvc, recoverySvc, metrics, logger)
	if err != nil {
		return err
	}

	// Periodically sweep expired sessions and reset tokens.
	go sweepExpired(ctx, sessionRepo, resetRepo, logger)

	cmd.Println("rosterd started")
	serveErr := server.Start(ctx)

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("shutdown complete")
	return nil
}

// sweepInterval controls how often expired sessions and reset tokens are
// removed.
const sweepInterval = time.Hour

func sweepExpired(ctx context.Context, sessions *authpg.SessionRepository, resets *authpg.PasswordResetRepository, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.DeleteExpired(ctx); err != nil {
				logger.Warn("expired session sweep failed", "error", err)
			} else if n > 0 {
				logger.Info("swept expired sessions", "count", n)
			}
			if n, err := resets.DeleteExpired(ctx); err != nil {
				logger.Warn("expired reset token sweep failed", "error", err)
			} else if n > 0 {
				logger.Info("swept expired reset tokens", "count", n)
			}
		}
	}
}

// monitorServerErrors cancels the context when a background server fails,
// triggering graceful shutdown of the whole process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
