package seed

import (
	"testing"
	"time"

	"blogicum/internal/database"
	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemorySQLite()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestParseFixtures(t *testing.T) {
	f, err := ParseFixtures(DefaultFixtures())
	require.NoError(t, err)
	assert.NotEmpty(t, f.Categories)
	assert.NotEmpty(t, f.Locations)

	_, err = ParseFixtures([]byte("categories:\n  - title: A\n    slug: a\n    colour: red\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = ParseFixtures([]byte("categories:\n  - title: A\n    slug: a\n  - title: B\n    slug: a\n"))
	assert.ErrorContains(t, err, "duplicate slug")

	_, err = ParseFixtures([]byte("locations:\n  - is_published: true\n"))
	assert.ErrorContains(t, err, "name is required")
}

func TestLoadFixtures_Idempotent(t *testing.T) {
	db := newTestDB(t)

	first, err := LoadFixtures(db, DefaultFixtures())
	require.NoError(t, err)
	second, err := LoadFixtures(db, DefaultFixtures())
	require.NoError(t, err)

	var categories, locations int64
	db.Model(&models.Category{}).Count(&categories)
	db.Model(&models.Location{}).Count(&locations)
	assert.Equal(t, int64(len(first.Categories)), categories)
	assert.Equal(t, int64(len(first.Locations)), locations)

	for i := range first.Categories {
		assert.NotZero(t, second.Categories[i].ID)
		assert.Equal(t, first.Categories[i].ID, second.Categories[i].ID)
	}

	var drafts models.Category
	require.NoError(t, db.Where("slug = ?", "drafts").First(&drafts).Error)
	assert.False(t, drafts.IsPublished)
}

func TestLoadFixtures_UpdatesExistingRows(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Category{Title: "Old", Description: "old", Slug: "travel", IsPublished: false}).Error)

	_, err := LoadFixtures(db, []byte("categories:\n  - title: Travel\n    slug: travel\n    description: new\n"))
	require.NoError(t, err)

	var c models.Category
	require.NoError(t, db.Where("slug = ?", "travel").First(&c).Error)
	assert.Equal(t, "Travel", c.Title)
	assert.True(t, c.IsPublished)
}

func TestFactory_DryRun(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true, MaxDays: 30, RandSeed: 42})
	author, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, author.ID)
	assert.Regexp(t, `^[a-z0-9.]+$`, author.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(author.Password), []byte(DefaultPassword)))

	category := &models.Category{ID: 7}
	horizon := time.Now().UTC().Add(-31 * 24 * time.Hour)
	for i := 0; i < 50; i++ {
		p := f.BuildPost(author, category, nil)
		assert.Equal(t, author.ID, p.AuthorID)
		assert.Equal(t, uint(7), p.CategoryID)
		assert.NotEmpty(t, p.Title)
		assert.True(t, p.PubDate.After(horizon), "pub date too old: %v", p.PubDate)
	}
}

func TestSeeder_Run(t *testing.T) {
	db := newTestDB(t)
	s := NewSeeder(db, Options{
		NumUsers:        4,
		NumPosts:        12,
		CommentsPerPost: 2,
		SkipBcrypt:      true,
		MaxDays:         10,
		RandSeed:        7,
	})

	summary, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Users)
	assert.Equal(t, 12, summary.Posts)
	assert.Equal(t, 24, summary.Comments)

	var users, posts, comments int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Comment{}).Count(&comments)
	assert.Equal(t, int64(4), users)
	assert.Equal(t, int64(12), posts)
	assert.Equal(t, int64(24), comments)

	require.NoError(t, s.ClearAll())
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Category{}).Count(&posts)
	assert.Zero(t, users)
	assert.Zero(t, posts)
}
