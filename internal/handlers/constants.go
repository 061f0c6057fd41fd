package handlers

const (
	SessionCookieName = "uniportal_session"

	CSRFHeaderName = "X-CSRF-Token"
	CSRFFieldName  = "csrf_token"

	ErrInvalidFormData     = "Invalid form data"
	ErrNotAuthenticated    = "Not authenticated"
	ErrForbidden           = "Forbidden"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
