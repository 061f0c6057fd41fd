package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"uniportal/internal/security"
	"uniportal/internal/service"
)

// AuthHandler translates form submissions into account-lifecycle operations
// and renders their outcomes as JSON. Redirect outcomes become a redirectTo
// field for the client router; session outcomes become the session cookie.
type AuthHandler struct {
	authService *service.AuthService
	tokens      *security.TokenIssuer
	csrf        *security.CSRFGenerator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokens *security.TokenIssuer, csrf *security.CSRFGenerator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		csrf:        csrf,
	}
}

// Signup handles signup form submission
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.Signup(r.Context(), service.SignupInput{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
		FullName: strings.TrimSpace(r.FormValue("fullName")),
	})
	h.renderOutcome(w, r, out)
}

// VerifySignup handles OTP verification for a pending registration
func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.VerifySignup(r.Context(), service.VerifyOTPInput{
		Email: strings.TrimSpace(r.FormValue("email")),
		Code:  strings.TrimSpace(r.FormValue("code")),
	})
	h.renderOutcome(w, r, out)
}

// ResendOTP issues a fresh verification code
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.ResendOTP(r.Context(), strings.TrimSpace(r.FormValue("email")))
	h.renderOutcome(w, r, out)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.Login(r.Context(), service.LoginInput{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	})
	h.renderOutcome(w, r, out)
}

// ForgotPassword starts the password reset flow
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.ForgotPassword(r.Context(), strings.TrimSpace(r.FormValue("email")))
	h.renderOutcome(w, r, out)
}

// VerifyResetOTP checks a reset code without consuming it
func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.VerifyResetOTP(r.Context(), service.VerifyOTPInput{
		Email: strings.TrimSpace(r.FormValue("email")),
		Code:  strings.TrimSpace(r.FormValue("code")),
	})
	h.renderOutcome(w, r, out)
}

// ResetPassword completes the password reset flow
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	out := h.authService.ResetPassword(r.Context(), service.ResetPasswordInput{
		Email:       strings.TrimSpace(r.FormValue("email")),
		Code:        strings.TrimSpace(r.FormValue("code")),
		NewPassword: r.FormValue("newPassword"),
	})
	h.renderOutcome(w, r, out)
}

// Logout clears the session cookie. Always succeeds; a previously issued
// token remains valid until its expiry since sessions are stateless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

// CSRFToken returns the CSRF token for the authenticated user
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, ErrNotAuthenticated, nil)
		return
	}

	token, err := h.csrf.GenerateToken(strconv.FormatInt(session.UserID, 10))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"csrfToken": token,
	})
}

// renderOutcome writes an operation outcome as JSON, setting the session
// cookie when one was issued
func (h *AuthHandler) renderOutcome(w http.ResponseWriter, r *http.Request, out *service.Outcome) {
	if out.SessionToken != "" {
		expires := time.Now().Add(h.tokens.TTL())
		http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, out.SessionToken, expires))
	}

	resp := map[string]interface{}{
		"success": out.Success,
	}
	if out.Message != "" {
		resp["message"] = out.Message
	}
	if len(out.FieldErrors) > 0 {
		resp["errors"] = out.FieldErrors
	}
	if out.Email != "" {
		resp["email"] = out.Email
	}
	if out.NeedsVerification {
		resp["isVerified"] = false
	}
	if out.CanResetPassword {
		resp["canResetPassword"] = true
	}
	if out.RedirectTo != "" {
		resp["redirectTo"] = out.RedirectTo
	}

	status := http.StatusOK
	if out.Message == service.MsgInternalError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}
