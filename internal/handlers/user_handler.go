package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"uniportal/internal/models"
	"uniportal/internal/service"
	"uniportal/internal/validation"
)

// UserHandler serves the authenticated user's own account
type UserHandler struct {
	authService *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// CurrentUser returns the account behind the session, without the password hash
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	account, err := h.authService.CurrentUser(session.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}
	if account == nil {
		respondError(w, http.StatusUnauthorized, "User not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, accountView(account))
}

// setupProfileRequest is the JSON body for profile setup
type setupProfileRequest struct {
	DegreeProgram string   `json:"degreeProgram"`
	Subjects      []string `json:"subjects"`
}

// SetupProfile records degree program and subjects for the authenticated user
func (h *UserHandler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req setupProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	account, err := h.authService.SetupProfile(session.UserID, service.ProfileSetupInput{
		DegreeProgram: req.DegreeProgram,
		Subjects:      req.Subjects,
	})
	if err != nil {
		var ve validation.ValidationError
		if errors.As(err, &ve) {
			respondError(w, http.StatusBadRequest, "Invalid request data", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, accountView(account))
}

// accountView is the client-safe rendering of an account
func accountView(account *models.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":            account.ID,
		"email":         account.Email,
		"username":      account.Username,
		"fullName":      account.FullName,
		"role":          account.Role,
		"isVerified":    account.IsVerified,
		"degreeProgram": account.DegreeProgram,
		"subjects":      account.Subjects,
		"createdAt":     account.CreatedAt,
	}
}
