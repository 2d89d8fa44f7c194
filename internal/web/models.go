// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package web

import (
	"time"

	"github.com/rosterd/rosterd/internal/directory"
)

// registerRequest carries the registration form fields.
type registerRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Gender   string `form:"gender" json:"gender"`
	Password string `form:"password" json:"password"`
}

// loginRequest carries the login form fields.
type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// forgotPasswordRequest carries the recovery form fields.
type forgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// resetPasswordRequest carries the reset form fields.
type resetPasswordRequest struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// changePasswordRequest carries the password change form fields.
type changePasswordRequest struct {
	OldPassword     string `form:"old_password" json:"old_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// editRequest carries the profile edit form fields.
type editRequest struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

// userView is the public shape of a user record. The password hash never
// leaves the service.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserView(u *directory.User) userView {
	return userView{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Gender:    string(u.Gender),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// messageResponse is a plain user-visible message.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is a status-coded failure message.
type errorResponse struct {
	Error string `json:"error"`
}
