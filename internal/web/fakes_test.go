// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package web_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rosterd/rosterd/internal/auth"
	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/mail"
)

// errMailDown simulates an SMTP outage.
var errMailDown = fmt.Errorf("%w: smtp connect refused", mail.ErrDeliveryFailed)

// fakeHasher keeps handler tests fast; the real hasher is covered in its own
// package.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "h:" + password, nil
}

func (fakeHasher) Verify(password, hash string) (bool, error) {
	return hash == "h:"+password, nil
}

// fakeUserRepo is an in-memory directory.UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users []*directory.User
}

func (f *fakeUserRepo) findByEmail(email string) *directory.User {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) findByID(id ulid.ULID) *directory.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *directory.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findByEmail(user.Email) != nil {
		return directory.ErrDuplicateEmail
	}
	clone := *user
	f.users = append(f.users, &clone)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id ulid.ULID) (*directory.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.findByID(id); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*directory.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.findByEmail(email); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]*directory.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*directory.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id ulid.ULID, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findByID(id)
	if u == nil {
		return directory.ErrNotFound
	}
	if existing := f.findByEmail(email); existing != nil && existing.ID != id {
		return directory.ErrDuplicateEmail
	}
	u.Name = name
	u.Email = email
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id ulid.ULID, expectedHash, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findByID(id)
	if u == nil || u.PasswordHash != expectedHash {
		return directory.ErrStaleCredentials
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) ReplacePassword(_ context.Context, id ulid.ULID, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findByID(id)
	if u == nil {
		return directory.ErrNotFound
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return directory.ErrNotFound
}

// fakeSessionRepo is an in-memory auth.SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*auth.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[ulid.ULID]*auth.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.TokenHash == tokenHash {
			clone := *s
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeSessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	s.LastSeenAt = lastSeen
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.IsExpired() {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

// fakeResetRepo is an in-memory auth.PasswordResetRepository.
type fakeResetRepo struct {
	mu     sync.Mutex
	resets map[ulid.ULID]*auth.PasswordReset
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{resets: make(map[ulid.ULID]*auth.PasswordReset)}
}

func (f *fakeResetRepo) Create(_ context.Context, reset *auth.PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *reset
	f.resets[reset.ID] = &clone
	return nil
}

func (f *fakeResetRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resets {
		if r.TokenHash == tokenHash {
			clone := *r
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeResetRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.resets {
		if r.UserID == userID {
			delete(f.resets, id)
		}
	}
	return nil
}

func (f *fakeResetRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.resets {
		if r.IsExpired() {
			delete(f.resets, id)
			n++
		}
	}
	return n, nil
}

// sentMail records one delivered message.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeMailer records outbound mail, optionally failing every send.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last() (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}, false
	}
	return f.sent[len(f.sent)-1], true
}
