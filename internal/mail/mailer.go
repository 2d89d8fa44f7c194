// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

// Package mail provides outbound mail delivery.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"
)

// ErrDeliveryFailed is returned when a message could not be delivered after
// all retries. Callers treat it as a delivery fault, distinct from lookup
// failures.
var ErrDeliveryFailed = errors.New("mail delivery failed")

// Delivery retry configuration.
const (
	retryBaseDelay = 500 * time.Millisecond
	maxRetries     = 3
)

// Config holds SMTP transport settings. Credentials come from process
// configuration, never hard-coded.
type Config struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS (SMTPS) when true, STARTTLS otherwise
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail over SMTP with bounded retries.
type SMTPMailer struct {
	client *gomail.Client
	from   string
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTPMailer from transport settings.
func NewSMTPMailer(cfg Config, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("from address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CLIENT_FAILED").
			With("host", cfg.Host).
			Wrap(err)
	}

	return &SMTPMailer{client: client, from: cfg.From, logger: logger}, nil
}

// Send delivers a plain-text message, retrying transient faults with
// exponential backoff. A final failure wraps ErrDeliveryFailed.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return oops.Code("MAIL_INVALID_ADDRESS").With("from", m.from).Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return oops.Code("MAIL_INVALID_ADDRESS").With("to", to).Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if sendErr := m.client.DialAndSendWithContext(ctx, msg); sendErr != nil {
			m.logger.Warn("mail send attempt failed", "to", to, "error", sendErr)
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("to", to).
			With("subject", subject).
			Wrap(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
	}

	return nil
}
