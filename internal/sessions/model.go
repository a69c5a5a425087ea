package sessions

import "time"

// Session status values.
const (
	StatusInactive = 0
	StatusActive   = 1
)

// TokenLength is the size of the opaque session token.
const TokenLength = 20

// Session is an issued login.
type Session struct {
	Token     string
	UserID    string
	Status    int
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Valid reports whether the session is active and unexpired at now.
// A session without an expiry never expires.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Status != StatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
