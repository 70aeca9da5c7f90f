package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"blogicum/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 3 * 24 * time.Hour

const resetPurpose = "password_reset"

// ResetTokens creates and checks password reset tokens. A token is bound to
// the user's current password hash and stops working once it changes.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokens returns a generator signing with secret.
func NewResetTokens(secret string) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), ttl: ResetTokenTTL, now: time.Now}
}

// Make returns a reset token for user.
func (r *ResetTokens) Make(user *models.User) (string, error) {
	now := r.now()
	claims := jwt.MapClaims{
		"sub":     strconv.FormatUint(uint64(user.ID), 10),
		"purpose": resetPurpose,
		"pwd":     PasswordFingerprint(user.Password),
		"iat":     now.Unix(),
		"exp":     now.Add(r.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Check reports whether token was made for user's current password.
func (r *ResetTokens) Check(user *models.User, tokenString string) bool {
	if user == nil || tokenString == "" {
		return false
	}
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	id, ok := subjectID(claims)
	if !ok || id != user.ID {
		return false
	}
	purpose, _ := claims["purpose"].(string)
	fp, _ := claims["pwd"].(string)
	return purpose == resetPurpose && fp == PasswordFingerprint(user.Password)
}

// EncodeUID renders a user id for reset URLs.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("decode uid: %w", err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("decode uid: not a user id")
	}
	return uint(id), nil
}
