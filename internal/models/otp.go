package models

import "time"

// OTPCode is a single-use verification code bound to an email address.
// Several unconsumed codes may coexist for the same email; each is consumed
// at most once.
type OTPCode struct {
	ID        int64
	Email     string
	Code      string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// IsExpired checks if the code's validity window has passed.
// A code expiring exactly now counts as expired.
func (c *OTPCode) IsExpired() bool {
	return !time.Now().Before(c.ExpiresAt)
}

// IsValid reports whether the code can still be consumed
func (c *OTPCode) IsValid() bool {
	return !c.IsUsed && !c.IsExpired()
}
