package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"blogicum/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "blogicum"
	tokenAudience = "blogicum-web"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// UserLoader fetches users by id. A missing user is (nil, nil).
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// SessionManager issues session tokens and resolves them back to principals.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	store  RevocationStore
	users  UserLoader
	now    func() time.Time
}

// NewSessionManager builds a manager signing with secret.
func NewSessionManager(secret string, ttl time.Duration, store RevocationStore, users UserLoader) *SessionManager {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		users:  users,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// PasswordFingerprint ties a token to the password hash it was issued for,
// so changing the password invalidates the token.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// Issue signs a new session token for user.
func (m *SessionManager) Issue(user *models.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(user.ID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
		"pwd": PasswordFingerprint(user.Password),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *SessionManager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subjectID(claims jwt.MapClaims) (uint, bool) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Resolve turns a token into a principal. Invalid, revoked or stale tokens
// resolve to Anonymous without an error; errors are reserved for storage failures.
func (m *SessionManager) Resolve(ctx context.Context, tokenString string) (Principal, error) {
	if tokenString == "" {
		return Anonymous, nil
	}
	claims, err := m.parse(tokenString)
	if err != nil {
		return Anonymous, nil
	}
	userID, ok := subjectID(claims)
	if !ok {
		return Anonymous, nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return Anonymous, nil
	}

	if m.store != nil {
		revoked, err := m.store.IsRevoked(ctx, jti)
		if err != nil {
			return Anonymous, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return Anonymous, nil
		}
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return Anonymous, fmt.Errorf("load session user: %w", err)
	}
	if user == nil || !user.IsActive {
		return Anonymous, nil
	}
	if fp, _ := claims["pwd"].(string); fp != PasswordFingerprint(user.Password) {
		return Anonymous, nil
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return Principal{User: user, TokenID: jti, ExpiresAt: expiresAt}, nil
}

// Revoke invalidates the principal's token until it would expire anyway.
func (m *SessionManager) Revoke(ctx context.Context, p Principal) error {
	if !p.IsAuthenticated() || p.TokenID == "" || m.store == nil {
		return nil
	}
	expiresAt := p.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = m.now().Add(m.ttl)
	}
	return m.store.Revoke(ctx, p.TokenID, p.UserID(), expiresAt)
}
