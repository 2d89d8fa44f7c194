// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rosterd/rosterd/internal/auth"
)

// sessionKey is the gin context key holding the validated session.
const sessionKey = "session"

// requireSession gates a route on a valid session cookie. A request with a
// missing, unknown, or expired token is redirected to the login entry point
// before the guarded handler runs.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		session, err := s.auth.ValidateSession(c.Request.Context(), token)
		if err != nil {
			s.logger.Debug("rejected unauthenticated request", "path", c.Request.URL.Path)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// currentSession returns the session stored by the guard, or nil.
func currentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, ok := v.(*auth.Session)
	if !ok {
		return nil
	}
	return session
}

// loggingMiddleware logs each request through the structured logger.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// metricsMiddleware counts requests by route and status.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
