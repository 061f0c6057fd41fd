package models

import "time"

// Announcement is a portal notice posted by a user. Student posts stay
// hidden until approved by an admin; admin posts are approved on creation.
type Announcement struct {
	ID         int64
	AuthorID   int64
	AuthorName string // populated via JOIN
	Title      string
	Body       string
	IsApproved bool
	CreatedAt  time.Time
}
