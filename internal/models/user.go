package models

import (
	"strings"
	"time"
)

// User is a registered blog account.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Username   string     `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email      string     `gorm:"size:254;not null;default:''" json:"email"`
	FirstName  string     `gorm:"size:150;not null;default:''" json:"first_name"`
	LastName   string     `gorm:"size:150;not null;default:''" json:"last_name"`
	Password   string     `gorm:"size:255;not null" json:"-"`
	IsStaff    bool       `gorm:"not null" json:"is_staff"`
	IsActive   bool       `gorm:"not null" json:"is_active"`
	DateJoined time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}
