package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"uniportal/internal/models"
	"uniportal/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenIssuer
	csrf    *security.CSRFGenerator
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.TokenIssuer, csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		tokens:  tokens,
		csrf:    csrf,
		limiter: limiter,
	}
}

// RequireAuth requires a valid session token. The identity is recovered from
// the cookie on every request; there is no server-side session state.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			respondError(w, http.StatusUnauthorized, ErrNotAuthenticated, nil)
			return
		}

		session, err := m.tokens.Read(cookie.Value)
		if err != nil || !session.IsLoggedIn {
			// Clear the unusable cookie
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			respondError(w, http.StatusUnauthorized, ErrNotAuthenticated, nil)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin requires a valid session with the admin role
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())
		if session == nil || session.Role != models.RoleAdmin {
			respondError(w, http.StatusForbidden, ErrForbidden, nil)
			return
		}
		next(w, r)
	})
}

// CSRFProtect validates the CSRF token on authenticated mutations.
// The token arrives in the X-CSRF-Token header or the csrf_token form field.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())
		if session == nil {
			respondError(w, http.StatusUnauthorized, ErrNotAuthenticated, nil)
			return
		}

		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.FormValue(CSRFFieldName)
		}

		identity := strconv.FormatInt(session.UserID, 10)
		if !m.csrf.ValidateToken(identity, token) {
			respondError(w, http.StatusForbidden, ErrInvalidCSRFToken, nil)
			return
		}

		next(w, r)
	}
}

// RateLimit applies the per-IP limiter, used on the auth endpoints to slow
// credential and code guessing.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondError(w, http.StatusTooManyRequests, ErrTooManyRequests, nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetSessionFromContext retrieves the session identity from the request context
func GetSessionFromContext(ctx context.Context) *models.SessionData {
	session, ok := ctx.Value(SessionContextKey).(*models.SessionData)
	if !ok {
		return nil
	}
	return session
}
