// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/rosterd/rosterd/internal/auth"
	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/mail"
	"github.com/rosterd/rosterd/internal/observability"
	"github.com/rosterd/rosterd/pkg/errutil"
)

// home is the authenticated landing view.
func (s *Server) home(c *gin.Context) {
	session := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "welcome",
		"email":   session.Email,
	})
}

// registerForm returns the data backing the registration form.
func (s *Server) registerForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"genders": []directory.Gender{
			directory.GenderMale,
			directory.GenderFemale,
			directory.GenderOther,
		},
	})
}

// register creates a new account. No session is established; the client is
// sent to the login entry point.
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed registration request"})
		return
	}

	_, err := s.directory.Register(c.Request.Context(), directory.RegistrationInput{
		Name:     req.Name,
		Email:    req.Email,
		Gender:   req.Gender,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrValidation):
			c.JSON(http.StatusBadRequest, errorResponse{Error: "name, email, gender and password are required"})
		case errors.Is(err, directory.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, errorResponse{Error: "email is already registered"})
		default:
			errutil.LogError(s.logger, "registration failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "registration failed"})
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	c.Redirect(http.StatusFound, "/login")
}

// loginForm returns the data backing the login form.
func (s *Server) loginForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": []string{"email", "password"}})
}

// login authenticates a user and sets the session cookie. An unknown email
// and a wrong password are distinct failures on this surface.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed login request"})
		return
	}

	_, token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			s.countLogin("unknown_email")
			c.JSON(http.StatusNotFound, errorResponse{Error: "email not found"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.countLogin("bad_password")
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid password"})
		default:
			s.countLogin("error")
			errutil.LogError(s.logger, "login failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "login failed"})
		}
		return
	}

	s.countLogin("success")
	c.SetCookie(sessionCookie, token, int(auth.SessionTokenExpiry.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// forgotPasswordForm returns the data backing the recovery form.
func (s *Server) forgotPasswordForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": []string{"email"}})
}

// forgotPassword mails a reset token to the account's address. An unknown
// email is reported distinctly from a delivery fault.
func (s *Server) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed recovery request"})
		return
	}

	err := s.recovery.RequestRecovery(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Error: "email not found"})
		case errors.Is(err, mail.ErrDeliveryFailed):
			observability.RecordMailDeliveryFailure("recovery")
			errutil.LogError(s.logger, "recovery mail delivery failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not deliver recovery mail"})
		default:
			errutil.LogError(s.logger, "recovery request failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "recovery request failed"})
		}
		return
	}

	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	}
	c.JSON(http.StatusOK, messageResponse{Message: "A reset link has been sent to your email."})
}

// resetPasswordForm checks the token from the mailed link before the client
// submits a new password.
func (s *Server) resetPasswordForm(c *gin.Context) {
	token := c.Query("token")
	if _, err := s.recovery.ValidateToken(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "reset token is invalid or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "fields": []string{"password"}})
}

// resetPassword consumes a reset token and replaces the password.
func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed reset request"})
		return
	}

	err := s.recovery.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
			c.JSON(http.StatusBadRequest, errorResponse{Error: "reset token is invalid or expired"})
		default:
			errutil.LogError(s.logger, "password reset failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "password reset failed"})
		}
		return
	}

	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	}
	c.Redirect(http.StatusFound, "/login")
}

// changePasswordForm returns the data backing the change form.
func (s *Server) changePasswordForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": []string{"old_password", "new_password", "confirm_password"}})
}

// changePassword changes the authenticated identity's password. A wrong old
// password is a credentials failure; an unchanged or mismatched new password
// is a plain form message, not a status-coded error.
func (s *Server) changePassword(c *gin.Context) {
	session := currentSession(c)

	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed change request"})
		return
	}

	err := s.auth.ChangePassword(c.Request.Context(), session.Email, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "old password is incorrect"})
		case errors.Is(err, auth.ErrPasswordUnchanged):
			c.JSON(http.StatusOK, messageResponse{Message: "New password must differ from the old password."})
		case errors.Is(err, auth.ErrPasswordMismatch):
			c.JSON(http.StatusOK, messageResponse{Message: "New password and confirmation do not match."})
		default:
			errutil.LogError(s.logger, "password change failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "password change failed"})
		}
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password changed."})
}

// display lists all records in store order.
func (s *Server) display(c *gin.Context) {
	users, err := s.directory.List(c.Request.Context())
	if err != nil {
		errutil.LogError(s.logger, "listing users failed", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not list users"})
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

// show returns one record.
func (s *Server) show(c *gin.Context) {
	user, ok := s.lookupUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

// editForm returns the record backing the edit form.
func (s *Server) editForm(c *gin.Context) {
	user, ok := s.lookupUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserView(user), "fields": []string{"name", "email"}})
}

// edit applies a name/email update. Gender and password are untouched.
func (s *Server) edit(c *gin.Context) {
	id, ok := s.parseID(c)
	if !ok {
		return
	}

	var req editRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed edit request"})
		return
	}

	err := s.directory.EditProfile(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
		case errors.Is(err, directory.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, errorResponse{Error: "email is already registered"})
		case errors.Is(err, directory.ErrValidation):
			c.JSON(http.StatusBadRequest, errorResponse{Error: "name and email are required"})
		default:
			errutil.LogError(s.logger, "profile edit failed", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "profile edit failed"})
		}
		return
	}

	c.Redirect(http.StatusFound, "/display")
}

// deleteRecord permanently removes a record.
func (s *Server) deleteRecord(c *gin.Context) {
	id, ok := s.parseID(c)
	if !ok {
		return
	}

	err := s.directory.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
			return
		}
		errutil.LogError(s.logger, "delete failed", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "delete failed"})
		return
	}

	c.Redirect(http.StatusFound, "/display")
}

// logout destroys the session, if any, and clears the cookie. Logging out
// without a session succeeds; only a store teardown fault is an error.
func (s *Server) logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookie)
	if err == nil && token != "" {
		if session, validateErr := s.auth.ValidateSession(c.Request.Context(), token); validateErr == nil {
			if logoutErr := s.auth.Logout(c.Request.Context(), session.ID); logoutErr != nil {
				errutil.LogError(s.logger, "session teardown failed", logoutErr)
				c.JSON(http.StatusInternalServerError, errorResponse{Error: "logout failed"})
				return
			}
		}
	}

	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// parseID parses the :id route parameter. An unparseable ID resolves to no
// record, so it reports not found.
func (s *Server) parseID(c *gin.Context) (ulid.ULID, bool) {
	id, err := ulid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
		return ulid.ULID{}, false
	}
	return id, true
}

// lookupUser resolves the :id route parameter to a record.
func (s *Server) lookupUser(c *gin.Context) (*directory.User, bool) {
	id, ok := s.parseID(c)
	if !ok {
		return nil, false
	}

	user, err := s.directory.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
			return nil, false
		}
		errutil.LogError(s.logger, "user lookup failed", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "user lookup failed"})
		return nil, false
	}
	return user, true
}
