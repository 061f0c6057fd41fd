package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"uniportal/internal/config"
	"uniportal/internal/database"
	"uniportal/internal/models"
	"uniportal/internal/repository"
	"uniportal/internal/security"
	"uniportal/internal/service"
)

const testSecret = "complex_password_at_least_32_characters_long"

// captureNotifier records issued codes instead of sending email
type captureNotifier struct {
	lastEmail string
	lastCode  string
}

func (n *captureNotifier) SendOTP(_ context.Context, email, code, _ string) error {
	n.lastEmail = email
	n.lastCode = code
	return nil
}

type handlerEnv struct {
	db            *database.DB
	accounts      *repository.AccountRepository
	announcements *repository.AnnouncementRepository
	tokens        *security.TokenIssuer
	csrf          *security.CSRFGenerator
	notifier      *captureNotifier
	auth          *AuthHandler
	users         *UserHandler
	posts         *AnnouncementHandler
	middleware    *Middleware
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.Config{
		DatabaseType:   "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "test.db"),
		MigrationsPath: filepath.Join("..", "..", "migrations"),
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(cfg.MigrationsPath))

	accounts := repository.NewAccountRepository(db)
	otps := repository.NewOTPRepository(db)
	announcements := repository.NewAnnouncementRepository(db)

	tokens := security.NewTokenIssuer(testSecret, time.Hour)
	csrf := security.NewCSRFGenerator(testSecret)
	notifier := &captureNotifier{}
	authService := service.NewAuthService(accounts, otps, notifier, tokens, 10*time.Minute)

	return &handlerEnv{
		db:            db,
		accounts:      accounts,
		announcements: announcements,
		tokens:        tokens,
		csrf:          csrf,
		notifier:      notifier,
		auth:          NewAuthHandler(authService, tokens, csrf),
		users:         NewUserHandler(authService),
		posts:         NewAnnouncementHandler(announcements),
		middleware:    NewMiddleware(tokens, csrf, security.NewRateLimiter(100, time.Minute)),
	}
}

// postForm builds a form POST request
func postForm(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// withSession injects a session identity the way RequireAuth does
func withSession(r *http.Request, session *models.SessionData) *http.Request {
	ctx := context.WithValue(r.Context(), SessionContextKey, session)
	return r.WithContext(ctx)
}

// decodeBody parses a JSON response body
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// sessionCookie finds the session cookie in a response, or nil
func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

// mustHash hashes a password for test fixtures
func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return hash
}

// signupAndVerify drives a registration through the handlers and returns the
// verified account
func (e *handlerEnv) signupAndVerify(t *testing.T, email, username, password string) *models.Account {
	t.Helper()

	w := httptest.NewRecorder()
	e.auth.Signup(w, postForm("/api/auth/signup", url.Values{
		"email":    {email},
		"username": {username},
		"password": {password},
		"fullName": {"Test Student"},
	}))
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"], "signup: %v", body["message"])

	w = httptest.NewRecorder()
	e.auth.VerifySignup(w, postForm("/api/auth/verify-signup", url.Values{
		"email": {email},
		"code":  {e.notifier.lastCode},
	}))
	body = decodeBody(t, w)
	require.Equal(t, true, body["success"], "verify: %v", body["message"])

	account, err := e.accounts.FindByEmail(email)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account
}
