package repository

import (
	"context"

	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
)

// LocationRepository defines persistence operations for locations.
type LocationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Location, error)
	All(ctx context.Context) ([]*models.Location, error)
	AdminList(ctx context.Context, f AdminFilter) ([]*models.Location, error)
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	SetPublished(ctx context.Context, id uint, published bool) error
	Delete(ctx context.Context, id uint) error
}

type locationRepository struct {
	db      *gorm.DB
	changes *observability.ChangeLog
}

// NewLocationRepository returns a new LocationRepository implementation.
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db, changes: observability.NewChangeLog("locations")}
}

func (r *locationRepository) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := readDB(r.db).WithContext(ctx).First(&location, id).Error; err != nil {
		return nil, wrapLookupError(err, "Location", id)
	}
	return &location, nil
}

func (r *locationRepository) All(ctx context.Context) ([]*models.Location, error) {
	var locations []*models.Location
	if err := readDB(r.db).WithContext(ctx).Order("name, id").Find(&locations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return locations, nil
}

func (r *locationRepository) AdminList(ctx context.Context, f AdminFilter) ([]*models.Location, error) {
	db := readDB(r.db).WithContext(ctx)
	if f.Query != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", containsPattern(f.Query))
	}
	if f.IsPublished != nil {
		db = db.Where("is_published = ?", *f.IsPublished)
	}
	var locations []*models.Location
	if err := db.Order("name, id").Limit(f.limit()).Offset(f.offset()).Find(&locations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return locations, nil
}

func (r *locationRepository) Create(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.changes.Created(ctx, location.ID)
	return nil
}

func (r *locationRepository) Update(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Model(location).Select("name", "is_published").Updates(location).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.changes.Updated(ctx, location.ID)
	return nil
}

func (r *locationRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Location", id)
	}
	return nil
}

// Delete removes the location; its posts stay with no location.
func (r *locationRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("location_id = ?", id).Update("location_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Location{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Location", id)
		}
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	r.changes.Deleted(ctx, id)
	return nil
}
