package models

// SessionData is the identity payload carried by the signed session token.
// The token lives entirely client-side; nothing is tracked server-side.
type SessionData struct {
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	IsVerified bool   `json:"isVerified"`
}
