package repository

import (
	"testing"
	"time"

	"blogicum/internal/database"
	"blogicum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB returns a postgres-dialect gorm DB backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated private in-memory database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
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

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createCategory(t *testing.T, db *gorm.DB, slug string, published bool) *models.Category {
	t.Helper()
	c := &models.Category{Title: slug, Description: slug, Slug: slug, IsPublished: published}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, category *models.Category, pubDate time.Time, published bool) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       "post",
		Text:        "text",
		PubDate:     pubDate.UTC(),
		IsPublished: published,
		AuthorID:    author.ID,
		CategoryID:  category.ID,
	}
	require.NoError(t, db.Omit("Author", "Category", "Location").Create(p).Error)
	return p
}

func createComment(t *testing.T, db *gorm.DB, author *models.User, post *models.Post, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{Text: text, AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, db.Omit("Author", "Post").Create(c).Error)
	return c
}
