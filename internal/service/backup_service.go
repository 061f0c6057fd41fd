package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"uniportal/internal/database"
)

// BackupData represents the complete portal backup structure
type BackupData struct {
	Version       string               `json:"version"`
	ExportID      string               `json:"export_id"`
	ExportedAt    time.Time            `json:"exported_at"`
	Accounts      []AccountBackup      `json:"accounts"`
	Announcements []AnnouncementBackup `json:"announcements"`
}

// AccountBackup represents an account record for backup
type AccountBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	PasswordHash  string    `json:"password_hash"`
	Role          string    `json:"role"`
	IsVerified    bool      `json:"is_verified"`
	DegreeProgram string    `json:"degree_program"`
	Subjects      string    `json:"subjects"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnnouncementBackup represents an announcement record for backup
type AnnouncementBackup struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// BackupService handles portal backup and restore operations. Pending
// registrations and OTP codes are transient working state and are not
// exported.
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the durable portal data to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting portal export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportID:   uuid.New().String(),
		ExportedAt: time.Now(),
	}

	if err := s.exportAccounts(backup); err != nil {
		return fmt.Errorf("failed to export accounts: %w", err)
	}

	if err := s.exportAnnouncements(backup); err != nil {
		return fmt.Errorf("failed to export announcements: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Export %s complete: %d accounts, %d announcements",
		backup.ExportID, len(backup.Accounts), len(backup.Announcements))
	return nil
}

// Import restores portal data from a backup file. With clear set, existing
// rows are removed first; otherwise rows that collide on unique keys fail
// the import.
func (s *BackupService) Import(inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	backup := &BackupData{}
	if err := json.NewDecoder(file).Decode(backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if clear {
		if _, err := tx.Exec("DELETE FROM announcements"); err != nil {
			return fmt.Errorf("failed to clear announcements: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM accounts"); err != nil {
			return fmt.Errorf("failed to clear accounts: %w", err)
		}
	}

	for _, a := range backup.Accounts {
		_, err := tx.Exec(`
			INSERT INTO accounts (id, email, username, full_name, password_hash, role, is_verified, degree_program, subjects, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.Email, a.Username, a.FullName, a.PasswordHash, a.Role, a.IsVerified, a.DegreeProgram, a.Subjects, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import account %d: %w", a.ID, err)
		}
	}

	for _, a := range backup.Announcements {
		_, err := tx.Exec(`
			INSERT INTO announcements (id, author_id, title, body, is_approved, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, a.AuthorID, a.Title, a.Body, a.IsApproved, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import announcement %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Printf("Import complete: %d accounts, %d announcements",
		len(backup.Accounts), len(backup.Announcements))
	return nil
}

func (s *BackupService) exportAccounts(backup *BackupData) error {
	rows, err := s.db.Query(`
		SELECT id, email, username, full_name, password_hash, role, is_verified,
		       COALESCE(degree_program, ''), COALESCE(subjects, ''), created_at
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AccountBackup
		if err := rows.Scan(&a.ID, &a.Email, &a.Username, &a.FullName, &a.PasswordHash,
			&a.Role, &a.IsVerified, &a.DegreeProgram, &a.Subjects, &a.CreatedAt); err != nil {
			return err
		}
		backup.Accounts = append(backup.Accounts, a)
	}
	return rows.Err()
}

func (s *BackupService) exportAnnouncements(backup *BackupData) error {
	rows, err := s.db.Query(`
		SELECT id, author_id, title, body, is_approved, created_at
		FROM announcements ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AnnouncementBackup
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Body, &a.IsApproved, &a.CreatedAt); err != nil {
			return err
		}
		backup.Announcements = append(backup.Announcements, a)
	}
	return rows.Err()
}
