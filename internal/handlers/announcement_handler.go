package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"uniportal/internal/models"
	"uniportal/internal/repository"
)

// AnnouncementHandler serves the portal announcement endpoints
type AnnouncementHandler struct {
	announcements *repository.AnnouncementRepository
}

// NewAnnouncementHandler creates a new announcement handler
func NewAnnouncementHandler(announcements *repository.AnnouncementRepository) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List returns approved announcements. Admins see everything, including
// posts still awaiting approval.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var (
		items []models.Announcement
		err   error
	)
	if session != nil && session.Role == models.RoleAdmin {
		items, err = h.announcements.ListAll()
	} else {
		items, err = h.announcements.ListApproved()
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(items))
	for i := range items {
		views = append(views, announcementView(&items[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"announcements": views,
	})
}

// Create posts a new announcement. Admin posts are approved immediately;
// student posts wait for moderation.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, ErrInvalidFormData, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	body := strings.TrimSpace(r.FormValue("body"))
	if title == "" || body == "" {
		respondError(w, http.StatusBadRequest, "Title and body are required", nil)
		return
	}

	isApproved := session.Role == models.RoleAdmin
	announcement, err := h.announcements.Create(session.UserID, title, body, isApproved)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}
	announcement.AuthorName = session.Username

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"announcement": announcementView(announcement),
	})
}

// Approve marks an announcement as approved (admin only)
func (h *AnnouncementHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid announcement id", nil)
		return
	}

	if err := h.announcements.Approve(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Announcement not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Announcement approved",
	})
}

func announcementView(a *models.Announcement) map[string]interface{} {
	return map[string]interface{}{
		"id":         a.ID,
		"authorId":   a.AuthorID,
		"author":     a.AuthorName,
		"title":      a.Title,
		"body":       a.Body,
		"isApproved": a.IsApproved,
		"createdAt":  a.CreatedAt,
	}
}
