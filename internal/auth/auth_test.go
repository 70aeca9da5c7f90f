package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"blogicum/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type stubUsers struct {
	GetByIDFunc func(ctx context.Context, id uint) (*models.User, error)
}

func (s stubUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.GetByIDFunc(ctx, id)
}

func usersOf(list ...*models.User) stubUsers {
	return stubUsers{GetByIDFunc: func(_ context.Context, id uint) (*models.User, error) {
		for _, u := range list {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, nil
	}}
}

func newRedisStore(t *testing.T) (*RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRevocationStore(client), mr
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RevokedSession{}))
	return db
}

func TestSessionManager_IssueAndResolve(t *testing.T) {
	store, _ := newRedisStore(t)
	user := &models.User{ID: 7, Username: "ada", Password: "hash-1", IsActive: true}
	m := NewSessionManager(testSecret, time.Hour, store, usersOf(user))

	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	p, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.True(t, p.IsAuthenticated())
	assert.Equal(t, uint(7), p.UserID())
	assert.NotEmpty(t, p.TokenID)
	assert.False(t, p.IsStaff())
}

func TestSessionManager_ResolveRejects(t *testing.T) {
	store, _ := newRedisStore(t)
	active := &models.User{ID: 1, Password: "hash", IsActive: true}
	inactive := &models.User{ID: 2, Password: "hash", IsActive: false}
	m := NewSessionManager(testSecret, time.Hour, store, usersOf(active, inactive))

	other := NewSessionManager("another-secret-another-secret-0000", time.Hour, store, usersOf(active))
	forged, _, err := other.Issue(active)
	require.NoError(t, err)

	inactiveToken, _, err := m.Issue(inactive)
	require.NoError(t, err)

	ghostToken, _, err := m.Issue(&models.User{ID: 99, Password: "hash"})
	require.NoError(t, err)

	changed, _, err := m.Issue(&models.User{ID: 1, Password: "old-hash"})
	require.NoError(t, err)

	expired := NewSessionManager(testSecret, time.Hour, store, usersOf(active))
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(active)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":            "",
		"garbage":          "not-a-jwt",
		"wrong secret":     forged,
		"inactive user":    inactiveToken,
		"deleted user":     ghostToken,
		"password changed": changed,
		"expired":          expiredToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := m.Resolve(context.Background(), token)
			require.NoError(t, err)
			assert.False(t, p.IsAuthenticated())
		})
	}
}

func TestSessionManager_RevokeWithRedis(t *testing.T) {
	store, mr := newRedisStore(t)
	user := &models.User{ID: 3, Password: "hash", IsActive: true}
	m := NewSessionManager(testSecret, time.Hour, store, usersOf(user))

	token, _, err := m.Issue(user)
	require.NoError(t, err)
	p, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), p))
	assert.True(t, mr.Exists("session:revoked:"+p.TokenID))
	assert.Greater(t, mr.TTL("session:revoked:"+p.TokenID), time.Duration(0))

	after, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, after.IsAuthenticated())

	assert.NoError(t, m.Revoke(context.Background(), Anonymous))
}

func TestSessionManager_RevokeWithDatabase(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewDBRevocationStore(db)
	user := &models.User{ID: 4, Password: "hash", IsActive: true}
	m := NewSessionManager(testSecret, time.Hour, store, usersOf(user))

	token, _, err := m.Issue(user)
	require.NoError(t, err)
	p, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.True(t, p.IsAuthenticated())

	require.NoError(t, m.Revoke(context.Background(), p))
	// Revoking twice is harmless.
	require.NoError(t, m.Revoke(context.Background(), p))

	var count int64
	require.NoError(t, db.Model(&models.RevokedSession{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	after, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, after.IsAuthenticated())
}

func TestDBRevocationStore_PrunesExpired(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewDBRevocationStore(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.RevokedSession{JTI: "old", UserID: 1, ExpiresAt: time.Now().UTC().Add(-time.Hour)}).Error)
	require.NoError(t, store.Revoke(ctx, "new", 1, time.Now().Add(time.Hour)))

	old, err := store.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, old)

	fresh, err := store.IsRevoked(ctx, "new")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestSessionManager_StoreFailureSurfaces(t *testing.T) {
	store, mr := newRedisStore(t)
	user := &models.User{ID: 5, Password: "hash", IsActive: true}
	m := NewSessionManager(testSecret, time.Hour, store, usersOf(user))
	token, _, err := m.Issue(user)
	require.NoError(t, err)

	mr.SetError("redis down")
	p, err := m.Resolve(context.Background(), token)
	assert.Error(t, err)
	assert.False(t, p.IsAuthenticated())
}

func TestSessionManager_UserLoaderError(t *testing.T) {
	user := &models.User{ID: 6, Password: "hash", IsActive: true}
	m := NewSessionManager(testSecret, time.Hour, nil, stubUsers{GetByIDFunc: func(context.Context, uint) (*models.User, error) {
		return nil, errors.New("db down")
	}})
	token, _, err := m.Issue(user)
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), token)
	assert.ErrorContains(t, err, "db down")
}

func TestResetTokens(t *testing.T) {
	r := NewResetTokens(testSecret)
	user := &models.User{ID: 11, Password: "hash-a"}

	token, err := r.Make(user)
	require.NoError(t, err)
	assert.True(t, r.Check(user, token))

	assert.False(t, r.Check(&models.User{ID: 12, Password: "hash-a"}, token), "other user")
	assert.False(t, r.Check(&models.User{ID: 11, Password: "hash-b"}, token), "password changed")
	assert.False(t, r.Check(user, ""), "empty")
	assert.False(t, r.Check(nil, token), "nil user")

	late := NewResetTokens(testSecret)
	late.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Hour) }
	assert.False(t, late.Check(user, token), "expired")

	session := NewSessionManager(testSecret, time.Hour, nil, usersOf(user))
	sessionToken, _, err := session.Issue(user)
	require.NoError(t, err)
	assert.False(t, r.Check(user, sessionToken), "session token is not a reset token")
}

func TestUIDEncoding(t *testing.T) {
	enc := EncodeUID(42)
	id, err := DecodeUID(enc)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = DecodeUID("!!")
	assert.Error(t, err)
	_, err = DecodeUID(EncodeUID(0))
	assert.Error(t, err)
}

func TestNewRevocationStore(t *testing.T) {
	store, _ := newRedisStore(t)
	assert.IsType(t, &RedisRevocationStore{}, NewRevocationStore(store.client, nil))
	assert.IsType(t, &DBRevocationStore{}, NewRevocationStore(nil, newSQLiteDB(t)))
}
