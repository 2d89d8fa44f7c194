// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package directory

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PasswordHasher produces password hashes for new registrations.
// Satisfied by auth.Argon2idHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service provides user directory operations.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewService creates a new directory Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	if users == nil {
		return nil, oops.Code("DIRECTORY_INVALID_DEPS").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("DIRECTORY_INVALID_DEPS").Errorf("password hasher is required")
	}
	return &Service{users: users, hasher: hasher}, nil
}

// Register validates the input, hashes the password, and stores a new user.
// No session is established; the caller directs the client to the login
// entry point.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("DIRECTORY_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("DIRECTORY_DUPLICATE_EMAIL").
				With("email", in.Email).
				Wrap(err)
		}
		return nil, oops.Code("DIRECTORY_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user, nil
}

// List returns all users in store order. No pagination.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code("DIRECTORY_LIST_FAILED").
			With("operation", "list users").
			Wrap(err)
	}
	return users, nil
}

// Get retrieves a single user by ID.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("DIRECTORY_USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		}
		return nil, oops.Code("DIRECTORY_GET_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// EditProfile updates only the name and email of the identified user.
// Gender and password are untouched. The store's unique index re-checks the
// new email; a collision surfaces as ErrDuplicateEmail.
func (s *Service) EditProfile(ctx context.Context, id ulid.ULID, name, email string) error {
	if name == "" || email == "" {
		return oops.Code("DIRECTORY_INVALID_INPUT").
			With("operation", "edit profile").
			Wrap(ErrValidation)
	}

	err := s.users.UpdateProfile(ctx, id, name, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return oops.Code("DIRECTORY_USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		case errors.Is(err, ErrDuplicateEmail):
			return oops.Code("DIRECTORY_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(err)
		}
		return oops.Code("DIRECTORY_EDIT_FAILED").
			With("operation", "update profile").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// Delete permanently removes the identified user.
func (s *Service) Delete(ctx context.Context, id ulid.ULID) error {
	err := s.users.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("DIRECTORY_USER_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		}
		return oops.Code("DIRECTORY_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}
