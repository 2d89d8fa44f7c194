// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested session or reset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned when a password does not match the
	// stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordUnchanged is returned when a password change supplies a new
	// password equal to the current one. This is a form-level outcome, not a
	// fault.
	ErrPasswordUnchanged = errors.New("new password cannot be the same as the old password")

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("new passwords do not match")

	// ErrTokenInvalid is returned when a reset token does not resolve.
	ErrTokenInvalid = errors.New("reset token invalid")

	// ErrTokenExpired is returned when a reset token has passed its expiry.
	ErrTokenExpired = errors.New("reset token expired")
)
