package service

import (
	"context"
	"errors"
	"log"
	"time"

	"uniportal/internal/models"
	"uniportal/internal/repository"
	"uniportal/internal/security"
	"uniportal/internal/validation"
)

// Result messages surfaced to the client. Login failures deliberately share
// one message for unknown email and wrong password; forgot-password keeps the
// portal's historical revealing behaviour.
const (
	MsgDuplicateEmail    = "User already exists with this email"
	MsgDuplicateUsername = "Username is already taken"
	MsgInvalidInput      = "Invalid input"
	MsgOTPSent           = "OTP sent"
	MsgInvalidCode       = "Invalid or expired code"
	MsgNoRegistration    = "Registration record not found."
	MsgInvalidCreds      = "Invalid credentials"
	MsgNotVerified       = "Account not verified"
	MsgUserNotFound      = "User not found"
	MsgResetCodeSent     = "Reset code sent"
	MsgPasswordUpdated   = "Password updated successfully"
	MsgInternalError     = "Internal server error"
)

// OTP purposes, used for notification wording and logging
const (
	PurposeSignup = "signup"
	PurposeResend = "resend"
	PurposeReset  = "reset password"
)

// AccountStore is the credential store consumed by the orchestrator
type AccountStore interface {
	FindByEmail(email string) (*models.Account, error)
	FindByUsername(username string) (*models.Account, error)
	FindByID(id int64) (*models.Account, error)
	CreatePending(email, username, fullName, passwordHash string) error
	PromotePending(email string) (*models.Account, error)
	UpdatePasswordHash(email, newHash string) error
	UpdateProfile(id int64, degreeProgram string, subjects []string) error
	DeleteStalePending(cutoff time.Time) error
}

// OTPStore is the verification-code ledger consumed by the orchestrator
type OTPStore interface {
	Create(email, code string, expiresAt time.Time) (*models.OTPCode, error)
	FindValid(email, code string, now time.Time) (*models.OTPCode, error)
	Consume(id int64) error
	DeleteExpired(now time.Time) error
}

// Notifier delivers a verification code out-of-band. Delivery is
// fire-and-forget: a failed send never fails the operation that issued
// the code.
type Notifier interface {
	SendOTP(ctx context.Context, email, code, purpose string) error
}

// Outcome is the result of a lifecycle operation. Redirects are modelled as
// data rather than control flow: a non-empty RedirectTo tells the boundary
// where to send the client, and a non-empty SessionToken tells it to write
// the session cookie.
type Outcome struct {
	Success           bool
	Message           string
	FieldErrors       map[string]string
	Email             string
	NeedsVerification bool
	CanResetPassword  bool
	RedirectTo        string
	SessionToken      string
}

// Typed inputs, one per operation

type SignupInput struct {
	Email    string
	Username string
	Password string
	FullName string
}

type VerifyOTPInput struct {
	Email string
	Code  string
}

type LoginInput struct {
	Email    string
	Password string
}

type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

type ProfileSetupInput struct {
	DegreeProgram string
	Subjects      []string
}

// AuthService orchestrates the account lifecycle: signup, OTP verification,
// login, password reset and profile setup.
type AuthService struct {
	accounts AccountStore
	otps     OTPStore
	notifier Notifier
	tokens   *security.TokenIssuer
	otpTTL   time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, otps OTPStore, notifier Notifier, tokens *security.TokenIssuer, otpTTL time.Duration) *AuthService {
	return &AuthService{
		accounts: accounts,
		otps:     otps,
		notifier: notifier,
		tokens:   tokens,
		otpTTL:   otpTTL,
	}
}

// Signup validates the submission, stores a pending registration with a
// hashed password and issues a verification code. The email collision check
// runs before the username check; the first collision found is reported.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) *Outcome {
	fieldErrors := map[string]string{}
	collectFieldError(fieldErrors, validation.ValidateEmail(in.Email))
	collectFieldError(fieldErrors, validation.ValidateUsername(in.Username))
	collectFieldError(fieldErrors, validation.ValidatePassword(in.Password))
	collectFieldError(fieldErrors, validation.ValidateName(in.FullName))
	if len(fieldErrors) > 0 {
		return &Outcome{Message: MsgInvalidInput, FieldErrors: fieldErrors}
	}

	existing, err := s.accounts.FindByEmail(in.Email)
	if err != nil {
		return s.internalError("signup: check email", err)
	}
	if existing != nil {
		return &Outcome{Message: MsgDuplicateEmail}
	}

	existing, err = s.accounts.FindByUsername(in.Username)
	if err != nil {
		return s.internalError("signup: check username", err)
	}
	if existing != nil {
		return &Outcome{Message: MsgDuplicateUsername}
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return s.internalError("signup: hash password", err)
	}

	if err := s.accounts.CreatePending(in.Email, in.Username, in.FullName, passwordHash); err != nil {
		return s.internalError("signup: create pending", err)
	}

	if err := s.issueOTP(ctx, in.Email, PurposeSignup); err != nil {
		return s.internalError("signup: issue otp", err)
	}

	return &Outcome{Success: true, Message: MsgOTPSent, Email: in.Email}
}

// VerifySignup checks the submitted code, promotes the pending registration
// into a verified student account, consumes the code and issues a session.
func (s *AuthService) VerifySignup(ctx context.Context, in VerifyOTPInput) *Outcome {
	if validation.ValidateEmail(in.Email) != nil || validation.ValidateOTPCode(in.Code) != nil {
		return &Outcome{Message: MsgInvalidInput}
	}

	otp, err := s.otps.FindValid(in.Email, in.Code, time.Now())
	if err != nil {
		return s.internalError("verify signup: find otp", err)
	}
	if otp == nil {
		return &Outcome{Message: MsgInvalidCode}
	}

	account, err := s.accounts.PromotePending(in.Email)
	if errors.Is(err, repository.ErrPendingNotFound) {
		return &Outcome{Message: MsgNoRegistration}
	}
	if err != nil {
		return s.internalError("verify signup: promote", err)
	}

	if err := s.otps.Consume(otp.ID); err != nil {
		return s.internalError("verify signup: consume otp", err)
	}

	token, err := s.issueSession(account)
	if err != nil {
		return s.internalError("verify signup: issue session", err)
	}

	return &Outcome{Success: true, RedirectTo: "/dashboard", SessionToken: token}
}

// ResendOTP issues a fresh code for the email. Earlier codes stay valid and
// no account-existence check is performed.
func (s *AuthService) ResendOTP(ctx context.Context, email string) *Outcome {
	if err := validation.ValidateEmail(email); err != nil {
		return &Outcome{Message: "Email required"}
	}

	if err := s.issueOTP(ctx, email, PurposeResend); err != nil {
		return s.internalError("resend otp", err)
	}

	return &Outcome{Success: true, Message: MsgOTPSent}
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same outcome; a correct password on an unverified
// account yields NeedsVerification with the email for routing, and no
// session is issued.
func (s *AuthService) Login(ctx context.Context, in LoginInput) *Outcome {
	if validation.ValidateEmail(in.Email) != nil || in.Password == "" {
		return &Outcome{Message: MsgInvalidInput}
	}

	account, err := s.accounts.FindByEmail(in.Email)
	if err != nil {
		return s.internalError("login: find account", err)
	}
	if account == nil {
		return &Outcome{Message: MsgInvalidCreds}
	}

	if !security.CheckPassword(in.Password, account.PasswordHash) {
		return &Outcome{Message: MsgInvalidCreds}
	}

	if !account.IsVerified {
		return &Outcome{Message: MsgNotVerified, NeedsVerification: true, Email: account.Email}
	}

	token, err := s.issueSession(account)
	if err != nil {
		return s.internalError("login: issue session", err)
	}

	return &Outcome{Success: true, RedirectTo: "/dashboard", SessionToken: token}
}

// ForgotPassword issues a reset code for an existing account. Unlike login,
// this path reports when no account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) *Outcome {
	if err := validation.ValidateEmail(email); err != nil {
		return &Outcome{Message: "Invalid email"}
	}

	account, err := s.accounts.FindByEmail(email)
	if err != nil {
		return s.internalError("forgot password: find account", err)
	}
	if account == nil {
		return &Outcome{Message: MsgUserNotFound}
	}

	if err := s.issueOTP(ctx, email, PurposeReset); err != nil {
		return s.internalError("forgot password: issue otp", err)
	}

	return &Outcome{Success: true, Message: MsgResetCodeSent, Email: email}
}

// VerifyResetOTP validates a reset code without consuming it. The code must
// remain valid for the subsequent ResetPassword submission, which performs
// the authoritative check and the consumption.
func (s *AuthService) VerifyResetOTP(ctx context.Context, in VerifyOTPInput) *Outcome {
	if validation.ValidateEmail(in.Email) != nil || validation.ValidateOTPCode(in.Code) != nil {
		return &Outcome{Message: MsgInvalidInput}
	}

	otp, err := s.otps.FindValid(in.Email, in.Code, time.Now())
	if err != nil {
		return s.internalError("verify reset: find otp", err)
	}
	if otp == nil {
		return &Outcome{Message: MsgInvalidCode}
	}

	return &Outcome{Success: true, CanResetPassword: true}
}

// ResetPassword re-validates the code, replaces the password hash and
// consumes the code. A code that expired or was consumed between the verify
// step and this submission fails here.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) *Outcome {
	if validation.ValidateEmail(in.Email) != nil ||
		validation.ValidateOTPCode(in.Code) != nil ||
		validation.ValidatePassword(in.NewPassword) != nil {
		return &Outcome{Message: MsgInvalidInput}
	}

	otp, err := s.otps.FindValid(in.Email, in.Code, time.Now())
	if err != nil {
		return s.internalError("reset password: find otp", err)
	}
	if otp == nil {
		return &Outcome{Message: MsgInvalidCode}
	}

	passwordHash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		return s.internalError("reset password: hash", err)
	}

	if err := s.accounts.UpdatePasswordHash(in.Email, passwordHash); err != nil {
		return s.internalError("reset password: update", err)
	}

	if err := s.otps.Consume(otp.ID); err != nil {
		return s.internalError("reset password: consume otp", err)
	}

	return &Outcome{Success: true, Message: MsgPasswordUpdated}
}

// SetupProfile records the degree program and subject choices for an
// authenticated account and marks it verified.
func (s *AuthService) SetupProfile(userID int64, in ProfileSetupInput) (*models.Account, error) {
	if in.DegreeProgram == "" {
		return nil, validation.ValidationError{Field: "degreeProgram", Message: "degree program is required"}
	}
	if len(in.Subjects) == 0 {
		return nil, validation.ValidationError{Field: "subjects", Message: "at least one subject is required"}
	}

	if err := s.accounts.UpdateProfile(userID, in.DegreeProgram, in.Subjects); err != nil {
		return nil, err
	}

	return s.accounts.FindByID(userID)
}

// CurrentUser resolves a session identity to its account
func (s *AuthService) CurrentUser(userID int64) (*models.Account, error) {
	return s.accounts.FindByID(userID)
}

// CleanupExpired prunes expired or consumed codes and pending registrations
// abandoned for more than a day.
func (s *AuthService) CleanupExpired() error {
	now := time.Now()
	if err := s.otps.DeleteExpired(now); err != nil {
		return err
	}
	return s.accounts.DeleteStalePending(now.Add(-24 * time.Hour))
}

// issueOTP generates a code, persists the challenge and hands it to the
// notifier. Earlier challenges for the email are never invalidated. Delivery
// failure is logged, not surfaced: the challenge stays valid so a resend can
// deliver it.
func (s *AuthService) issueOTP(ctx context.Context, email, purpose string) error {
	code, err := security.GenerateOTP()
	if err != nil {
		return err
	}

	if _, err := s.otps.Create(email, code, time.Now().Add(s.otpTTL)); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.SendOTP(ctx, email, code, purpose); err != nil {
			log.Printf("Warning: failed to deliver %s OTP to %s: %v", purpose, email, err)
		}
	}

	return nil
}

// issueSession signs a token for a verified account
func (s *AuthService) issueSession(account *models.Account) (string, error) {
	return s.tokens.Issue(models.SessionData{
		UserID:     account.ID,
		Username:   account.Username,
		Role:       account.Role,
		IsLoggedIn: true,
		IsVerified: true,
	})
}

// internalError converts any store or hash failure into the generic outcome
func (s *AuthService) internalError(op string, err error) *Outcome {
	log.Printf("%s: %v", op, err)
	return &Outcome{Message: MsgInternalError}
}

// collectFieldError records a validation error under its field name
func collectFieldError(fieldErrors map[string]string, err error) {
	if err == nil {
		return
	}
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		fieldErrors[ve.Field] = ve.Message
		return
	}
	fieldErrors["form"] = err.Error()
}
