package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListActiveByEmail(ctx context.Context, email string) ([]*models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	SetPassword(ctx context.Context, id uint, hash string) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	SetStaff(ctx context.Context, id uint, staff bool) error
	ListStaff(ctx context.Context) ([]*models.User, error)
}

type userRepository struct {
	db      *gorm.DB
	changes *observability.ChangeLog
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, changes: observability.NewChangeLog("users")}
}

// GetByID returns nil, nil when no such user exists.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername matches the username exactly and returns nil, nil on a miss.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// ListActiveByEmail finds active accounts registered with email, ignoring case.
func (r *userRepository) ListActiveByEmail(ctx context.Context, email string) ([]*models.User, error) {
	var users []*models.User
	err := readDB(r.db).WithContext(ctx).
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// UsernameTaken reports whether another account, other than excludeID,
// already uses username in any letter case.
func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(username))
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with that username already exists.")
		}
		r.changes.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.changes.Created(ctx, user.ID, slog.String("username", user.Username))
	return nil
}

// UpdateProfile saves the editable profile fields only.
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).
		Model(user).
		Select("username", "first_name", "last_name", "email").
		Updates(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with that username already exists.")
		}
		return models.NewInternalError(err)
	}
	r.changes.Updated(ctx, user.ID)
	return nil
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumn(ctx, id, "password", hash)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login", at)
}

func (r *userRepository) SetStaff(ctx context.Context, id uint, staff bool) error {
	return r.updateColumn(ctx, id, "is_staff", staff)
}

func (r *userRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) ListStaff(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := readDB(r.db).WithContext(ctx).Where("is_staff = ?", true).Order("username").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
