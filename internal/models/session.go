package models

import "time"

// RevokedSession records a logged-out session token until it would have expired anyway.
type RevokedSession struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	RevokedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for RevokedSession.
func (RevokedSession) TableName() string {
	return "revoked_sessions"
}
