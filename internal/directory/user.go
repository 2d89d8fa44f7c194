// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

// Package directory provides the user directory domain model and services.
package directory

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Gender is the closed set of accepted gender values.
type Gender string

// Accepted Gender values.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid returns true if the gender is one of the accepted values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User represents a directory user record.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	Gender       Gender
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegistrationInput carries the raw fields of a registration request.
// Validate must pass before the input reaches any store call.
type RegistrationInput struct {
	Name     string
	Email    string
	Gender   string
	Password string
}

// Validate checks the required-field contract and the gender closed set.
// All failures wrap ErrValidation.
func (in RegistrationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return oops.Code("DIRECTORY_INVALID_INPUT").
			With("field", "name").
			Wrap(ErrValidation)
	}
	if strings.TrimSpace(in.Email) == "" {
		return oops.Code("DIRECTORY_INVALID_INPUT").
			With("field", "email").
			Wrap(ErrValidation)
	}
	if in.Gender == "" {
		return oops.Code("DIRECTORY_INVALID_INPUT").
			With("field", "gender").
			Wrap(ErrValidation)
	}
	if !Gender(in.Gender).Valid() {
		return oops.Code("DIRECTORY_INVALID_GENDER").
			With("gender", in.Gender).
			Wrap(ErrValidation)
	}
	if in.Password == "" {
		return oops.Code("DIRECTORY_INVALID_INPUT").
			With("field", "password").
			Wrap(ErrValidation)
	}
	return nil
}

// NewUser creates a validated User from registration input and a password hash.
func NewUser(in RegistrationInput, passwordHash string) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("DIRECTORY_INVALID_INPUT").
			With("field", "password_hash").
			Wrap(ErrValidation)
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Name:         in.Name,
		Email:        in.Email,
		Gender:       Gender(in.Gender),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail if the email
	// is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List retrieves all users in store order.
	List(ctx context.Context) ([]*User, error)

	// UpdateProfile updates only the name and email of a user.
	// Returns ErrDuplicateEmail if the new email is already taken.
	UpdateProfile(ctx context.Context, id ulid.ULID, name, email string) error

	// UpdatePassword replaces the password hash for a user, but only if the
	// stored hash still equals expectedHash. Returns ErrStaleCredentials if
	// the stored hash changed underneath the caller.
	UpdatePassword(ctx context.Context, id ulid.ULID, expectedHash, newHash string) error

	// ReplacePassword unconditionally replaces the password hash for a user.
	// Used by the reset-token flow where no current hash is known.
	ReplacePassword(ctx context.Context, id ulid.ULID, newHash string) error

	// Delete permanently removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
