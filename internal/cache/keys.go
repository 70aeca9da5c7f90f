package cache

import (
	"fmt"
	"time"
)

const (
	RevokedSessionKeyPrefix = "session:revoked:%s"
	RateLimitKeyPrefix      = "rl:%s:%s"
)

const (
	SignupRateLimitWindow = 10 * time.Minute
	// LoginRateLimitWindow bounds login attempts per client.
	LoginRateLimitWindow = 5 * time.Minute
	// PasswordResetRateLimitWindow bounds reset mails per client.
	PasswordResetRateLimitWindow = time.Hour
)

// RevokedSessionKey marks a logged-out session token id.
func RevokedSessionKey(jti string) string {
	return fmt.Sprintf(RevokedSessionKeyPrefix, jti)
}

// RateLimitKey counts hits of resource by a client id.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, id)
}
