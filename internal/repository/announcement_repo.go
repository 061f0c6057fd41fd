package repository

import (
	"database/sql"
	"fmt"
	"time"

	"uniportal/internal/database"
	"uniportal/internal/models"
)

// AnnouncementRepository handles database operations for announcements
type AnnouncementRepository struct {
	db *database.DB
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *database.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts a new announcement
func (r *AnnouncementRepository) Create(authorID int64, title, body string, isApproved bool) (*models.Announcement, error) {
	query := `
		INSERT INTO announcements (author_id, title, body, is_approved)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, authorID, title, body, isApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	return &models.Announcement{
		ID:         id,
		AuthorID:   authorID,
		Title:      title,
		Body:       body,
		IsApproved: isApproved,
		CreatedAt:  time.Now(),
	}, nil
}

// ListApproved retrieves approved announcements, newest first
func (r *AnnouncementRepository) ListApproved() ([]models.Announcement, error) {
	query := `
		SELECT a.id, a.author_id, u.username, a.title, a.body, a.is_approved, a.created_at
		FROM announcements a
		JOIN accounts u ON u.id = a.author_id
		WHERE a.is_approved = ?
		ORDER BY a.created_at DESC
	`
	return r.list(query, true)
}

// ListAll retrieves every announcement, newest first (admin moderation view)
func (r *AnnouncementRepository) ListAll() ([]models.Announcement, error) {
	query := `
		SELECT a.id, a.author_id, u.username, a.title, a.body, a.is_approved, a.created_at
		FROM announcements a
		JOIN accounts u ON u.id = a.author_id
		ORDER BY a.created_at DESC
	`
	return r.list(query)
}

// Approve marks an announcement as approved; returns sql.ErrNoRows when absent
func (r *AnnouncementRepository) Approve(id int64) error {
	query := "UPDATE announcements SET is_approved = ? WHERE id = ?"
	result, err := r.db.Exec(query, true, id)
	if err != nil {
		return fmt.Errorf("failed to approve announcement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read approve result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AnnouncementRepository) list(query string, args ...interface{}) ([]models.Announcement, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var announcements []models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(
			&a.ID,
			&a.AuthorID,
			&a.AuthorName,
			&a.Title,
			&a.Body,
			&a.IsApproved,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}

	return announcements, rows.Err()
}
