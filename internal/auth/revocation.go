package auth

import (
	"context"
	"errors"
	"time"

	"blogicum/internal/cache"
	"blogicum/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevocationStore remembers session token ids that were logged out.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationStore keeps revoked ids as keys that expire with the token.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore returns a store backed by client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke marks jti as revoked until expiresAt.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, _ uint, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, cache.RevokedSessionKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, cache.RevokedSessionKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DBRevocationStore keeps revoked ids in the revoked_sessions table. It is
// used when Redis is not configured.
type DBRevocationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDBRevocationStore returns a store backed by db.
func NewDBRevocationStore(db *gorm.DB) *DBRevocationStore {
	return &DBRevocationStore{db: db, now: time.Now}
}

// Revoke records jti. Expired rows are pruned on the way.
func (s *DBRevocationStore) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at < ?", s.now().UTC()).Delete(&models.RevokedSession{}).Error; err != nil {
			return err
		}
		row := models.RevokedSession{JTI: jti, UserID: userID, ExpiresAt: expiresAt.UTC()}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	})
}

// IsRevoked reports whether jti was revoked.
func (s *DBRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var row models.RevokedSession
	err := s.db.WithContext(ctx).Where("jti = ?", jti).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NewRevocationStore prefers Redis and falls back to the database.
func NewRevocationStore(client *redis.Client, db *gorm.DB) RevocationStore {
	if client != nil {
		return NewRedisRevocationStore(client)
	}
	return NewDBRevocationStore(db)
}
