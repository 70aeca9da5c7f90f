package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	updateFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	getPublicByIDFn func(context.Context, uint, time.Time) (*models.Post, error)
	findPostsFn     func(context.Context, repository.PostQuery) (*repository.PostPage, error)
	deleteFn        func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetPublicByID(ctx context.Context, id uint, now time.Time) (*models.Post, error) {
	return s.getPublicByIDFn(ctx, id, now)
}
func (s *postRepoStub) FindPosts(ctx context.Context, q repository.PostQuery) (*repository.PostPage, error) {
	return s.findPostsFn(ctx, q)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *postRepoStub) SetPublished(context.Context, uint, bool) error {
	return nil
}
func (s *postRepoStub) AdminList(context.Context, repository.AdminFilter) ([]*models.Post, error) {
	return nil, nil
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1}, nil
		},
		getPublicByIDFn: func(_ context.Context, id uint, _ time.Time) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		findPostsFn: func(_ context.Context, _ repository.PostQuery) (*repository.PostPage, error) {
			return &repository.PostPage{Number: 1, NumPages: 1, PerPage: repository.PageSize}, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getForPostFn  func(context.Context, uint, uint) (*models.Comment, error)
	listForPostFn func(context.Context, uint) ([]*models.Comment, error)
	updateTextFn  func(context.Context, *models.Comment) error
	deleteFn      func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetForPost(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	return s.getForPostFn(ctx, postID, commentID)
}
func (s *commentRepoStub) ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listForPostFn(ctx, postID)
}
func (s *commentRepoStub) UpdateText(ctx context.Context, c *models.Comment) error {
	return s.updateTextFn(ctx, c)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *commentRepoStub) AdminList(context.Context, repository.AdminFilter) ([]*models.Comment, error) {
	return nil, nil
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error { c.ID = 1; return nil },
		getForPostFn: func(_ context.Context, postID, commentID uint) (*models.Comment, error) {
			return &models.Comment{ID: commentID, PostID: postID, AuthorID: 1}, nil
		},
		listForPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateTextFn:  func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
	}
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.Category, error)
	getPublishedBySlugFn func(context.Context, string) (*models.Category, error)
	createFn             func(context.Context, *models.Category) error
	updateFn             func(context.Context, *models.Category) error
	deleteFn             func(context.Context, uint) ([]string, error)
}

func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetPublishedBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.getPublishedBySlugFn(ctx, slug)
}
func (s *categoryRepoStub) All(context.Context) ([]*models.Category, error) { return nil, nil }
func (s *categoryRepoStub) AdminList(context.Context, repository.AdminFilter) ([]*models.Category, error) {
	return nil, nil
}
func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	if s.createFn != nil {
		return s.createFn(ctx, c)
	}
	return nil
}
func (s *categoryRepoStub) Update(ctx context.Context, c *models.Category) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, c)
	}
	return nil
}
func (s *categoryRepoStub) SetPublished(context.Context, uint, bool) error { return nil }
func (s *categoryRepoStub) Delete(ctx context.Context, id uint) ([]string, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil, nil
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Category, error) {
			return &models.Category{ID: id, IsPublished: true}, nil
		},
		getPublishedBySlugFn: func(_ context.Context, slug string) (*models.Category, error) {
			return &models.Category{ID: 1, Slug: slug, IsPublished: true}, nil
		},
	}
}

// locationRepoStub is a stub for repository.LocationRepository.
type locationRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.Location, error)
}

func (s *locationRepoStub) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	return s.getByIDFn(ctx, id)
}
func (s *locationRepoStub) All(context.Context) ([]*models.Location, error) { return nil, nil }
func (s *locationRepoStub) AdminList(context.Context, repository.AdminFilter) ([]*models.Location, error) {
	return nil, nil
}
func (s *locationRepoStub) Create(context.Context, *models.Location) error { return nil }
func (s *locationRepoStub) Update(context.Context, *models.Location) error { return nil }
func (s *locationRepoStub) SetPublished(context.Context, uint, bool) error { return nil }
func (s *locationRepoStub) Delete(context.Context, uint) error { return nil }

func noopLocationRepo() *locationRepoStub {
	return &locationRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Location, error) {
			return &models.Location{ID: id}, nil
		},
	}
}

// userRepoStub is an in-memory repository.UserRepository.
type userRepoStub struct {
	users  map[uint]*models.User
	nextID uint
	err    error
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{users: map[uint]*models.User{}, nextID: 1}
	for _, u := range users {
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *userRepoStub) ListActiveByEmail(_ context.Context, email string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range s.users {
		if u.IsActive && strings.EqualFold(u.Email, email) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *userRepoStub) UsernameTaken(_ context.Context, username string, excludeID uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, u := range s.users {
		if u.ID != excludeID && strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	user.ID = s.nextID
	s.nextID++
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userRepoStub) UpdateProfile(_ context.Context, user *models.User) error {
	u, ok := s.users[user.ID]
	if !ok {
		return models.NewNotFoundError("User", user.ID)
	}
	u.Username, u.FirstName, u.LastName, u.Email = user.Username, user.FirstName, user.LastName, user.Email
	return nil
}

func (s *userRepoStub) SetPassword(_ context.Context, id uint, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	u.Password = hash
	return nil
}

func (s *userRepoStub) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (s *userRepoStub) SetStaff(_ context.Context, id uint, staff bool) error {
	if u, ok := s.users[id]; ok {
		u.IsStaff = staff
	}
	return nil
}

func (s *userRepoStub) ListStaff(context.Context) ([]*models.User, error) { return nil, nil }

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	fe, ok := models.AsFieldErrors(err)
	require.True(t, ok, "expected field errors, got %v", err)
	assert.True(t, fe.Has(field), "expected error on %q, got %v", field, fe)
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, models.CodeForbidden, appErr.Code)
}
