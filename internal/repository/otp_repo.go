package repository

import (
	"database/sql"
	"fmt"
	"time"

	"uniportal/internal/database"
	"uniportal/internal/models"
)

// OTPRepository handles database operations for verification codes
type OTPRepository struct {
	db *database.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create persists a fresh verification code. Earlier unconsumed codes for the
// same email are left untouched, so several valid codes can coexist.
func (r *OTPRepository) Create(email, code string, expiresAt time.Time) (*models.OTPCode, error) {
	query := `
		INSERT INTO otp_codes (email, code, expires_at, is_used)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, code, expiresAt, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create otp code: %w", err)
	}

	return &models.OTPCode{
		ID:        id,
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
		IsUsed:    false,
		CreatedAt: time.Now(),
	}, nil
}

// FindValid looks up an unused, unexpired challenge matching email and code
// exactly. The match is returned without being consumed; no match yields
// (nil, nil).
func (r *OTPRepository) FindValid(email, code string, now time.Time) (*models.OTPCode, error) {
	query := `
		SELECT id, email, code, expires_at, is_used, created_at
		FROM otp_codes
		WHERE email = ? AND code = ? AND is_used = ? AND expires_at > ?
		ORDER BY id DESC
		LIMIT 1
	`
	otp := &models.OTPCode{}
	err := r.db.QueryRow(query, email, code, false, now).Scan(
		&otp.ID,
		&otp.Email,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.IsUsed,
		&otp.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp code: %w", err)
	}

	return otp, nil
}

// Consume marks a challenge as used. Consuming an already-used challenge is
// a no-op so concurrent double-submits cannot corrupt state.
func (r *OTPRepository) Consume(id int64) error {
	query := "UPDATE otp_codes SET is_used = ? WHERE id = ?"
	_, err := r.db.Exec(query, true, id)
	if err != nil {
		return fmt.Errorf("failed to consume otp code: %w", err)
	}
	return nil
}

// DeleteExpired prunes challenges that are past expiry or already consumed
func (r *OTPRepository) DeleteExpired(now time.Time) error {
	query := "DELETE FROM otp_codes WHERE expires_at < ? OR is_used = ?"
	_, err := r.db.Exec(query, now, true)
	if err != nil {
		return fmt.Errorf("failed to delete expired otp codes: %w", err)
	}
	return nil
}
