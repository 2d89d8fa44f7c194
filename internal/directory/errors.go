// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package directory

import "errors"

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a create or profile update would
	// reuse an email already present in the directory.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrValidation is returned when registration input is missing a
	// required field or carries a value outside its closed set.
	ErrValidation = errors.New("invalid input")

	// ErrStaleCredentials is returned when a conditional password update
	// finds the stored hash no longer matches the expected one.
	ErrStaleCredentials = errors.New("stored credentials changed")
)
