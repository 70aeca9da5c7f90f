package service

import (
	"context"
	"log/slog"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
)

// ModerationService backs the staff admin surface: category and location
// management plus publishing and removal of posts and comments.
type ModerationService struct {
	categories repository.CategoryRepository
	locations  repository.LocationRepository
	posts      repository.PostRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	images     ImageStore
}

// NewModerationService returns a new ModerationService.
func NewModerationService(
	categories repository.CategoryRepository,
	locations repository.LocationRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	images ImageStore,
) *ModerationService {
	return &ModerationService{
		categories: categories,
		locations:  locations,
		posts:      posts,
		comments:   comments,
		users:      users,
		images:     images,
	}
}

func (s *ModerationService) ListCategories(ctx context.Context, f repository.AdminFilter) ([]*models.Category, error) {
	return s.categories.AdminList(ctx, f)
}

// CreateCategory validates and stores a new category.
func (s *ModerationService) CreateCategory(ctx context.Context, form validation.CategoryForm) (*models.Category, error) {
	category, err := form.Clean()
	if err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, slugConflict(err)
	}
	return category, nil
}

// UpdateCategory replaces every editable field of category id.
func (s *ModerationService) UpdateCategory(ctx context.Context, id uint, form validation.CategoryForm) (*models.Category, error) {
	existing, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cleaned, err := form.Clean()
	if err != nil {
		return nil, err
	}
	existing.Title = cleaned.Title
	existing.Description = cleaned.Description
	existing.Slug = cleaned.Slug
	existing.IsPublished = cleaned.IsPublished
	if err := s.categories.Update(ctx, existing); err != nil {
		return nil, slugConflict(err)
	}
	return existing, nil
}

func (s *ModerationService) SetCategoryPublished(ctx context.Context, id uint, published bool) error {
	return s.categories.SetPublished(ctx, id, published)
}

// DeleteCategory removes the category together with its posts, their
// comments and their uploaded images.
func (s *ModerationService) DeleteCategory(ctx context.Context, id uint) error {
	images, err := s.categories.Delete(ctx, id)
	if err != nil {
		return err
	}
	if s.images != nil {
		for _, rel := range images {
			s.images.Remove(rel)
		}
	}
	return nil
}

func (s *ModerationService) ListLocations(ctx context.Context, f repository.AdminFilter) ([]*models.Location, error) {
	return s.locations.AdminList(ctx, f)
}

func (s *ModerationService) CreateLocation(ctx context.Context, form validation.LocationForm) (*models.Location, error) {
	location, err := form.Clean()
	if err != nil {
		return nil, err
	}
	if err := s.locations.Create(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *ModerationService) UpdateLocation(ctx context.Context, id uint, form validation.LocationForm) (*models.Location, error) {
	existing, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cleaned, err := form.Clean()
	if err != nil {
		return nil, err
	}
	existing.Name = cleaned.Name
	existing.IsPublished = cleaned.IsPublished
	if err := s.locations.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *ModerationService) SetLocationPublished(ctx context.Context, id uint, published bool) error {
	return s.locations.SetPublished(ctx, id, published)
}

// DeleteLocation removes the location. Its posts stay, without a location.
func (s *ModerationService) DeleteLocation(ctx context.Context, id uint) error {
	return s.locations.Delete(ctx, id)
}

func (s *ModerationService) ListPosts(ctx context.Context, f repository.AdminFilter) ([]*models.Post, error) {
	return s.posts.AdminList(ctx, f)
}

func (s *ModerationService) SetPostPublished(ctx context.Context, id uint, published bool) error {
	return s.posts.SetPublished(ctx, id, published)
}

// DeletePost removes any post along with its comments and image.
func (s *ModerationService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	if post.Image != "" && s.images != nil {
		s.images.Remove(post.Image)
	}
	observability.L().InfoContext(ctx, "post removed by staff", slog.Uint64("post_id", uint64(id)))
	return nil
}

func (s *ModerationService) ListComments(ctx context.Context, f repository.AdminFilter) ([]*models.Comment, error) {
	return s.comments.AdminList(ctx, f)
}

func (s *ModerationService) DeleteComment(ctx context.Context, id uint) error {
	return s.comments.Delete(ctx, id)
}

// SetStaff grants or revokes staff access for username.
func (s *ModerationService) SetStaff(ctx context.Context, username string, staff bool) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	if err := s.users.SetStaff(ctx, user.ID, staff); err != nil {
		return nil, err
	}
	user.IsStaff = staff
	return user, nil
}

func (s *ModerationService) ListStaff(ctx context.Context) ([]*models.User, error) {
	return s.users.ListStaff(ctx)
}

func slugConflict(err error) error {
	if models.HasCode(err, models.CodeConflict) {
		return models.FieldErrors{"slug": {validation.MsgSlugTaken}}
	}
	return err
}
