package repository

import (
	"context"
	"log/slog"

	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Category, error)
	All(ctx context.Context) ([]*models.Category, error)
	AdminList(ctx context.Context, f AdminFilter) ([]*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	SetPublished(ctx context.Context, id uint, published bool) error
	// Delete removes the category with its posts and their comments and
	// returns the image paths the removed posts referenced.
	Delete(ctx context.Context, id uint) ([]string, error)
}

type categoryRepository struct {
	db      *gorm.DB
	changes *observability.ChangeLog
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db, changes: observability.NewChangeLog("categories")}
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := readDB(r.db).WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, wrapLookupError(err, "Category", id)
	}
	return &category, nil
}

// GetPublishedBySlug treats an unpublished category as missing.
func (r *categoryRepository) GetPublishedBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := readDB(r.db).WithContext(ctx).
		Where("slug = ? AND is_published = ?", slug, true).
		First(&category).Error
	if err != nil {
		return nil, wrapLookupError(err, "Category", slug)
	}
	return &category, nil
}

// All lists every category by title, for form choices.
func (r *categoryRepository) All(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	if err := readDB(r.db).WithContext(ctx).Order("title, id").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) AdminList(ctx context.Context, f AdminFilter) ([]*models.Category, error) {
	db := readDB(r.db).WithContext(ctx)
	if f.Query != "" {
		like := containsPattern(f.Query)
		db = db.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
	}
	if f.IsPublished != nil {
		db = db.Where("is_published = ?", *f.IsPublished)
	}
	var categories []*models.Category
	if err := db.Order("title, id").Limit(f.limit()).Offset(f.offset()).Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	r.changes.Created(ctx, category.ID, slog.String("slug", category.Slug))
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).
		Model(category).
		Select("title", "description", "slug", "is_published").
		Updates(category).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	r.changes.Updated(ctx, category.ID)
	return nil
}

func (r *categoryRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}

// Delete removes the category with its posts and their comments.
func (r *categoryRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	var images []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("category_id = ? AND image <> ''", id).
			Pluck("image", &images).Error; err != nil {
			return err
		}
		postIDs := tx.Model(&models.Post{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Category", id)
		}
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	r.changes.Deleted(ctx, id, slog.Int("images", len(images)))
	return images, nil
}
