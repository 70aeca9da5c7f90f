package service

import (
	"context"
	"testing"

	"blogicum/internal/models"
	"blogicum/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModerationService(categories *categoryRepoStub, posts *postRepoStub, users *userRepoStub, images ImageStore) *ModerationService {
	return NewModerationService(categories, noopLocationRepo(), posts, noopCommentRepo(), users, images)
}

func TestModerationService_CreateCategory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores valid category", func(t *testing.T) {
		t.Parallel()
		categories := noopCategoryRepo()
		categories.createFn = func(_ context.Context, c *models.Category) error { c.ID = 5; return nil }
		svc := newModerationService(categories, noopPostRepo(), newUserRepoStub(), nil)

		c, err := svc.CreateCategory(ctx, validation.CategoryForm{Title: "Travel", Description: "Trips", Slug: "travel"})
		require.NoError(t, err)
		assert.Equal(t, uint(5), c.ID)
		assert.True(t, c.IsPublished)
	})

	t.Run("duplicate slug becomes a field error", func(t *testing.T) {
		t.Parallel()
		categories := noopCategoryRepo()
		categories.createFn = func(context.Context, *models.Category) error {
			return models.NewConflictError("slug taken")
		}
		svc := newModerationService(categories, noopPostRepo(), newUserRepoStub(), nil)

		_, err := svc.CreateCategory(ctx, validation.CategoryForm{Title: "Travel", Description: "Trips", Slug: "travel"})
		assertFieldError(t, err, "slug")
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		svc := newModerationService(noopCategoryRepo(), noopPostRepo(), newUserRepoStub(), nil)
		_, err := svc.CreateCategory(ctx, validation.CategoryForm{Slug: "not a slug"})
		assertFieldError(t, err, "slug")
		assertFieldError(t, err, "title")
	})
}

func TestModerationService_UpdateCategory(t *testing.T) {
	t.Parallel()
	var saved *models.Category
	categories := noopCategoryRepo()
	categories.updateFn = func(_ context.Context, c *models.Category) error { saved = c; return nil }
	svc := newModerationService(categories, noopPostRepo(), newUserRepoStub(), nil)

	hidden := false
	c, err := svc.UpdateCategory(context.Background(), 3, validation.CategoryForm{
		Title: "Food", Description: "Meals", Slug: "food", IsPublished: &hidden,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), c.ID)
	assert.Equal(t, "food", saved.Slug)
	assert.False(t, saved.IsPublished)
}

func TestModerationService_DeletePostRemovesImage(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 1, Image: "posts_images/x.jpg"}, nil
	}
	var deleted uint
	posts.deleteFn = func(_ context.Context, id uint) error { deleted = id; return nil }
	images := &imageStoreStub{}
	svc := newModerationService(noopCategoryRepo(), posts, newUserRepoStub(), images)

	require.NoError(t, svc.DeletePost(context.Background(), 9))
	assert.Equal(t, uint(9), deleted)
	assert.Equal(t, []string{"posts_images/x.jpg"}, images.removed)
}

func TestModerationService_DeleteCategoryRemovesImages(t *testing.T) {
	t.Parallel()
	categories := noopCategoryRepo()
	categories.deleteFn = func(_ context.Context, id uint) ([]string, error) {
		if id != 4 {
			return nil, models.NewNotFoundError("Category", id)
		}
		return []string{"posts_images/a.jpg", "posts_images/b.png"}, nil
	}
	images := &imageStoreStub{}
	svc := newModerationService(categories, noopPostRepo(), newUserRepoStub(), images)

	require.NoError(t, svc.DeleteCategory(context.Background(), 4))
	assert.Equal(t, []string{"posts_images/a.jpg", "posts_images/b.png"}, images.removed)

	err := svc.DeleteCategory(context.Background(), 5)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Len(t, images.removed, 2)
}

func TestModerationService_SetStaff(t *testing.T) {
	t.Parallel()
	users := newUserRepoStub(&models.User{ID: 1, Username: "alice", IsActive: true})
	svc := newModerationService(noopCategoryRepo(), noopPostRepo(), users, nil)

	u, err := svc.SetStaff(context.Background(), "alice", true)
	require.NoError(t, err)
	assert.True(t, u.IsStaff)
	assert.True(t, users.users[1].IsStaff)

	_, err = svc.SetStaff(context.Background(), "ghost", true)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
