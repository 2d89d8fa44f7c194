// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/internal/directory"
)

// recoverySubject is the subject line of recovery mail, kept from the legacy
// surface.
const recoverySubject = "Forgot Password"

// Mailer delivers a message to a recipient, best effort.
// Satisfied by mail.SMTPMailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RecoveryService handles self-service password recovery. Recovery mails a
// time-limited reset token, never the password itself.
type RecoveryService struct {
	users   directory.UserRepository
	resets  PasswordResetRepository
	hasher  PasswordHasher
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

// NewRecoveryService creates a new RecoveryService. baseURL is the externally
// reachable prefix used to build reset links.
func NewRecoveryService(
	users directory.UserRepository,
	resets PasswordResetRepository,
	hasher PasswordHasher,
	mailer Mailer,
	baseURL string,
	logger *slog.Logger,
) (*RecoveryService, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("users repository is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("resets repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Code("RESET_INVALID_DEPS").Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryService{
		users:   users,
		resets:  resets,
		hasher:  hasher,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// RequestRecovery generates a reset token for the account with the given
// email and mails it. An unknown email is a distinct failure from a delivery
// fault: the former maps to the not-found surface, the latter to a delivery
// error. Requires no prior authentication.
func (s *RecoveryService) RequestRecovery(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return oops.Code("RESET_EMAIL_NOT_FOUND").
				With("email", email).
				Wrap(directory.ErrNotFound)
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	reset, err := NewPasswordReset(user.ID, hash, time.Now().Add(ResetTokenExpiry))
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "create reset").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset").
			Wrap(err)
	}

	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Visit %s/reset-password?token=%s within %s to choose a new password.\n\n"+
			"If you did not request this, ignore this message.",
		s.baseURL, token, ResetTokenExpiry,
	)

	if err := s.mailer.Send(ctx, user.Email, recoverySubject, body); err != nil {
		return oops.Code("RESET_DELIVERY_FAILED").
			With("operation", "send recovery mail").
			Wrap(err)
	}

	s.logger.Info("recovery mail sent", "user_id", user.ID.String())
	return nil
}

// ValidateToken validates a reset token and returns the associated user ID.
func (s *RecoveryService) ValidateToken(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	hash := hashResetToken(token)

	reset, err := s.resets.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
		}
		return ulid.ULID{}, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "get reset by token hash").
			Wrap(err)
	}

	if reset.IsExpired() {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_EXPIRED").Wrap(ErrTokenExpired)
	}

	return reset.UserID, nil
}

// ResetPassword consumes a valid reset token and replaces the user's
// password. All outstanding tokens for the user are removed afterwards.
func (s *RecoveryService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return oops.Code("RESET_PASSWORD_EMPTY").Errorf("new password cannot be empty")
	}

	userID, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.ReplacePassword(ctx, userID, hash); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "replace password").
			With("user_id", userID.String()).
			Wrap(err)
	}

	// Cleanup; the password is already updated if this fails.
	if err := s.resets.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn("failed to delete consumed reset tokens",
			"user_id", userID.String(),
			"error", err,
		)
	}

	return nil
}
