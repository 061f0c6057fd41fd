package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniportal/internal/models"
)

func sessionFor(account *models.Account) *models.SessionData {
	return &models.SessionData{
		UserID:     account.ID,
		Username:   account.Username,
		Role:       account.Role,
		IsLoggedIn: true,
		IsVerified: account.IsVerified,
	}
}

func TestCurrentUser(t *testing.T) {
	env := newHandlerEnv(t)
	account := env.signupAndVerify(t, "alice@example.edu", "alice", "password123")

	r := withSession(httptest.NewRequest(http.MethodGet, "/api/auth/user", nil), sessionFor(account))
	w := httptest.NewRecorder()
	env.users.CurrentUser(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "alice@example.edu", body["email"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, models.RoleStudent, body["role"])
	assert.Equal(t, true, body["isVerified"])
	assert.NotContains(t, body, "passwordHash", "password hash must never be rendered")
}

func TestCurrentUserAccountGone(t *testing.T) {
	env := newHandlerEnv(t)

	// Valid token, but the account no longer exists
	r := withSession(httptest.NewRequest(http.MethodGet, "/api/auth/user", nil), &models.SessionData{
		UserID:     9999,
		Username:   "ghost",
		Role:       models.RoleStudent,
		IsLoggedIn: true,
	})
	w := httptest.NewRecorder()
	env.users.CurrentUser(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found", decodeBody(t, w)["message"])
}

func TestSetupProfile(t *testing.T) {
	env := newHandlerEnv(t)
	account := env.signupAndVerify(t, "alice@example.edu", "alice", "password123")

	payload := `{"degreeProgram":"Computer Science","subjects":["Algorithms","Databases"]}`
	r := httptest.NewRequest(http.MethodPost, "/api/user/setup-profile", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r = withSession(r, sessionFor(account))
	w := httptest.NewRecorder()
	env.users.SetupProfile(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Computer Science", body["degreeProgram"])
	assert.Equal(t, []interface{}{"Algorithms", "Databases"}, body["subjects"])
}

func TestSetupProfileRejectsIncompleteInput(t *testing.T) {
	env := newHandlerEnv(t)
	account := env.signupAndVerify(t, "alice@example.edu", "alice", "password123")

	for name, payload := range map[string]string{
		"missing degree":   `{"subjects":["Algorithms"]}`,
		"missing subjects": `{"degreeProgram":"Computer Science"}`,
		"malformed json":   `{`,
	} {
		r := httptest.NewRequest(http.MethodPost, "/api/user/setup-profile", strings.NewReader(payload))
		r.Header.Set("Content-Type", "application/json")
		r = withSession(r, sessionFor(account))
		w := httptest.NewRecorder()
		env.users.SetupProfile(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Equal(t, "Invalid request data", decodeBody(t, w)["message"], name)
	}
}
