// Package auth issues and verifies session and password-reset tokens.
package auth

import (
	"time"

	"blogicum/internal/models"
)

// Principal is the identity attached to a request. The zero value is anonymous.
type Principal struct {
	User      *models.User
	TokenID   string
	ExpiresAt time.Time
}

// Anonymous is the principal of requests without a valid session.
var Anonymous = Principal{}

// IsAuthenticated reports whether the principal carries a user.
func (p Principal) IsAuthenticated() bool {
	return p.User != nil
}

// UserID returns the user's id, or zero for anonymous principals.
func (p Principal) UserID() uint {
	if p.User == nil {
		return 0
	}
	return p.User.ID
}

// IsStaff reports whether the principal may use the admin surface.
func (p Principal) IsStaff() bool {
	return p.User != nil && p.User.IsStaff
}
