// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosterd/rosterd/internal/auth"
	"github.com/rosterd/rosterd/internal/auth/mocks"
	"github.com/rosterd/rosterd/internal/directory"
	dirmocks "github.com/rosterd/rosterd/internal/directory/mocks"
)

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       directory.UserRepository
		sessions    auth.SessionRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil users repository",
			users:       nil,
			sessions:    mocks.NewMockSessionRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "users repository is required",
		},
		{
			name:        "nil sessions repository",
			users:       dirmocks.NewMockUserRepository(t),
			sessions:    nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "sessions repository is required",
		},
		{
			name:        "nil password hasher",
			users:       dirmocks.NewMockUserRepository(t),
			sessions:    mocks.NewMockSessionRepository(t),
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.sessions, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func newTestUser() *directory.User {
	return &directory.User{
		ID:           ulid.Make(),
		Name:         "Ann",
		Email:        "ann@example.com",
		Gender:       directory.GenderFemale,
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login creates session", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, token, err := svc.Login(ctx, user.Email, "pw1")
		require.NoError(t, err)
		assert.NotNil(t, session)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Equal(t, user.ID, session.UserID)
		assert.Equal(t, user.Email, session.Email)
		assert.Equal(t, auth.HashSessionToken(token), session.TokenHash)
	})

	t.Run("unknown email reports not found", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, directory.ErrNotFound)

		session, token, err := svc.Login(ctx, "ghost@example.com", "pw1")
		require.Error(t, err)
		assert.ErrorIs(t, err, directory.ErrNotFound)
		assert.Nil(t, session)
		assert.Empty(t, token)
		sessions.AssertNotCalled(t, "Create")
	})

	t.Run("wrong password reports invalid credentials", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "wrong", user.PasswordHash).Return(false, nil)

		session, token, err := svc.Login(ctx, user.Email, "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Nil(t, session)
		assert.Empty(t, token)
		sessions.AssertNotCalled(t, "Create")
	})

	t.Run("session store fault surfaces", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(errors.New("db down"))

		_, _, err = svc.Login(ctx, user.Email, "pw1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		id := ulid.Make()
		sessions.On("Delete", ctx, id).Return(nil)

		assert.NoError(t, svc.Logout(ctx, id))
	})

	t.Run("already-absent session is not an error", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		id := ulid.Make()
		sessions.On("Delete", ctx, id).Return(auth.ErrNotFound)

		assert.NoError(t, svc.Logout(ctx, id))
	})

	t.Run("teardown fault surfaces", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		id := ulid.Make()
		sessions.On("Delete", ctx, id).Return(errors.New("db down"))

		assert.Error(t, svc.Logout(ctx, id))
	})
}

func TestService_ValidateSession(t *testing.T) {
	ctx := context.Background()

	newSession := func(expiresAt time.Time) *auth.Session {
		return &auth.Session{
			ID:        ulid.Make(),
			UserID:    ulid.Make(),
			Email:     "ann@example.com",
			TokenHash: auth.HashSessionToken("token123"),
			ExpiresAt: expiresAt,
		}
	}

	t.Run("valid token returns session", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		session := newSession(time.Now().Add(time.Hour))
		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("token123")).Return(session, nil)
		sessions.On("UpdateLastSeen", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		got, err := svc.ValidateSession(ctx, "token123")
		require.NoError(t, err)
		assert.Equal(t, session.Email, got.Email)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		_, err = svc.ValidateSession(ctx, "")
		assert.Error(t, err)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		_, err = svc.ValidateSession(ctx, "nosuchtoken")
		assert.Error(t, err)
	})

	t.Run("expired session rejected", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		session := newSession(time.Now().Add(-time.Minute))
		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("token123")).Return(session, nil)

		_, err = svc.ValidateSession(ctx, "token123")
		assert.Error(t, err)
		sessions.AssertNotCalled(t, "UpdateLastSeen")
	})

	t.Run("last-seen update failure does not fail validation", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		session := newSession(time.Now().Add(time.Hour))
		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("token123")).Return(session, nil)
		sessions.On("UpdateLastSeen", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(errors.New("db down"))

		_, err = svc.ValidateSession(ctx, "token123")
		assert.NoError(t, err)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("changes password via conditional update", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)
		hasher.On("Hash", "pw2").Return("newhash", nil)
		users.On("UpdatePassword", ctx, user.ID, user.PasswordHash, "newhash").Return(nil)

		err = svc.ChangePassword(ctx, user.Email, "pw1", "pw2", "pw2")
		assert.NoError(t, err)
	})

	t.Run("wrong old password reports invalid credentials", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "wrong", user.PasswordHash).Return(false, nil)

		err = svc.ChangePassword(ctx, user.Email, "wrong", "pw2", "pw2")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		users.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("unchanged password reports no-op", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)

		err = svc.ChangePassword(ctx, user.Email, "pw1", "pw1", "pw1")
		assert.ErrorIs(t, err, auth.ErrPasswordUnchanged)
		users.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("confirmation mismatch reported after no-op check", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)

		err = svc.ChangePassword(ctx, user.Email, "pw1", "pw2", "pw3")
		assert.ErrorIs(t, err, auth.ErrPasswordMismatch)
		users.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("stale hash reported as invalid credentials", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		user := newTestUser()
		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "pw1", user.PasswordHash).Return(true, nil)
		hasher.On("Hash", "pw2").Return("newhash", nil)
		users.On("UpdatePassword", ctx, user.ID, user.PasswordHash, "newhash").Return(directory.ErrStaleCredentials)

		err = svc.ChangePassword(ctx, user.Email, "pw1", "pw2", "pw2")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("missing identity reports not found", func(t *testing.T) {
		users := dirmocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, directory.ErrNotFound)

		err = svc.ChangePassword(ctx, "ghost@example.com", "pw1", "pw2", "pw2")
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})
}
