package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"uniportal/internal/database"
	"uniportal/internal/models"
)

var (
	// ErrDuplicate is returned when an insert violates the email or username uniqueness
	ErrDuplicate = errors.New("email or username already exists")

	// ErrPendingNotFound is returned when a promotion finds no pending registration,
	// including when a concurrent promotion claimed it first
	ErrPendingNotFound = errors.New("pending registration not found")
)

const accountColumns = `id, email, username, full_name, password_hash, role, is_verified, COALESCE(degree_program, ''), COALESCE(subjects, ''), created_at`

// AccountRepository handles database operations for accounts and pending registrations
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Used for admin seeding and tests; normal
// student accounts are created through PromotePending.
func (r *AccountRepository) Create(email, username, fullName, passwordHash, role string, isVerified bool) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, username, full_name, password_hash, role, is_verified)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, username, fullName, passwordHash, role, isVerified)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &models.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Role:         role,
		IsVerified:   isVerified,
		CreatedAt:    time.Now(),
	}, nil
}

// FindByEmail retrieves an account by email address
func (r *AccountRepository) FindByEmail(email string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE email = ?"
	return r.scanAccount(r.db.QueryRow(query, email))
}

// FindByUsername retrieves an account by username
func (r *AccountRepository) FindByUsername(username string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE username = ?"
	return r.scanAccount(r.db.QueryRow(query, username))
}

// FindByID retrieves an account by ID
func (r *AccountRepository) FindByID(id int64) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = ?"
	return r.scanAccount(r.db.QueryRow(query, id))
}

// CreatePending stores a pending registration for the email, replacing any
// earlier abandoned one for the same address.
func (r *AccountRepository) CreatePending(email, username, fullName, passwordHash string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pending_registrations WHERE email = ?", email); err != nil {
		return fmt.Errorf("failed to clear stale pending registration: %w", err)
	}

	query := `
		INSERT INTO pending_registrations (email, username, full_name, password_hash)
		VALUES (?, ?, ?, ?)
	`
	if _, err := tx.Exec(query, email, username, fullName, passwordHash); err != nil {
		return fmt.Errorf("failed to create pending registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pending registration: %w", err)
	}
	return nil
}

// FindPendingByEmail retrieves a pending registration by email
func (r *AccountRepository) FindPendingByEmail(email string) (*models.PendingRegistration, error) {
	query := `
		SELECT email, username, full_name, password_hash, created_at
		FROM pending_registrations
		WHERE email = ?
	`
	pending := &models.PendingRegistration{}
	err := r.db.QueryRow(query, email).Scan(
		&pending.Email,
		&pending.Username,
		&pending.FullName,
		&pending.PasswordHash,
		&pending.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending registration: %w", err)
	}

	return pending, nil
}

// PromotePending atomically turns a pending registration into a verified
// student account. The pending row is claimed with a guarded delete inside
// the transaction, so of two concurrent promotions exactly one succeeds and
// the other observes ErrPendingNotFound.
func (r *AccountRepository) PromotePending(email string) (*models.Account, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pending := &models.PendingRegistration{}
	err = tx.QueryRow(`
		SELECT email, username, full_name, password_hash
		FROM pending_registrations
		WHERE email = ?
	`, email).Scan(&pending.Email, &pending.Username, &pending.FullName, &pending.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending registration: %w", err)
	}

	result, err := tx.Exec("DELETE FROM pending_registrations WHERE email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending registration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read claim result: %w", err)
	}
	if affected == 0 {
		// Lost the race to a concurrent promotion
		return nil, ErrPendingNotFound
	}

	id, err := tx.ExecReturningID(`
		INSERT INTO accounts (email, username, full_name, password_hash, role, is_verified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, pending.Email, pending.Username, pending.FullName, pending.PasswordHash, models.RoleStudent, true)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit promotion: %w", err)
	}

	return &models.Account{
		ID:           id,
		Email:        pending.Email,
		Username:     pending.Username,
		FullName:     pending.FullName,
		PasswordHash: pending.PasswordHash,
		Role:         models.RoleStudent,
		IsVerified:   true,
		CreatedAt:    time.Now(),
	}, nil
}

// UpdatePasswordHash replaces the password hash for the account with the given email
func (r *AccountRepository) UpdatePasswordHash(email, newHash string) error {
	query := "UPDATE accounts SET password_hash = ? WHERE email = ?"
	_, err := r.db.Exec(query, newHash, email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateProfile sets the degree program and subjects for an account and marks it verified
func (r *AccountRepository) UpdateProfile(id int64, degreeProgram string, subjects []string) error {
	query := `
		UPDATE accounts
		SET degree_program = ?, subjects = ?, is_verified = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, degreeProgram, joinSubjects(subjects), true, id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DeleteStalePending removes pending registrations created before cutoff
func (r *AccountRepository) DeleteStalePending(cutoff time.Time) error {
	query := "DELETE FROM pending_registrations WHERE created_at < ?"
	_, err := r.db.Exec(query, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete stale pending registrations: %w", err)
	}
	return nil
}

// CountAccounts returns the total number of accounts
func (r *AccountRepository) CountAccounts() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// ListAccounts retrieves all accounts ordered by creation time
func (r *AccountRepository) ListAccounts() ([]models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts ORDER BY created_at DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		var subjects string
		if err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.Username,
			&account.FullName,
			&account.PasswordHash,
			&account.Role,
			&account.IsVerified,
			&account.DegreeProgram,
			&subjects,
			&account.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Subjects = splitSubjects(subjects)
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// scanAccount reads a single account row, translating no-rows to (nil, nil)
func (r *AccountRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var subjects string
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.FullName,
		&account.PasswordHash,
		&account.Role,
		&account.IsVerified,
		&account.DegreeProgram,
		&subjects,
		&account.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Subjects = splitSubjects(subjects)
	return account, nil
}

func joinSubjects(subjects []string) string {
	return strings.Join(subjects, ",")
}

func splitSubjects(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// isUniqueViolation reports whether err is a uniqueness constraint error
// from any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
