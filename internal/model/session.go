package model

import "time"

// Session stores the backend access token and the minimal identity returned by login.
// Key identifies the local owner of the session (a chat id, or "web").
type Session struct {
	Key       string `gorm:"primaryKey"`
	UserID    int64  `gorm:"index"`
	Username  string
	Email     string
	Token     string
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
