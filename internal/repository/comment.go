package repository

import (
	"context"
	"log/slog"

	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetForPost(ctx context.Context, postID, commentID uint) (*models.Comment, error)
	ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	UpdateText(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	AdminList(ctx context.Context, f AdminFilter) ([]*models.Comment, error)
}

type commentRepository struct {
	db      *gorm.DB
	changes *observability.ChangeLog
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, changes: observability.NewChangeLog("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		r.changes.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.changes.Created(ctx, comment.ID, slog.Uint64("post_id", uint64(comment.PostID)))
	return nil
}

// GetForPost loads a comment only if it belongs to postID.
func (r *commentRepository) GetForPost(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("id = ? AND post_id = ?", commentID, postID).
		First(&comment).Error
	if err != nil {
		return nil, wrapLookupError(err, "Comment", commentID)
	}
	return &comment, nil
}

// ListForPost returns the comments of a post, oldest first.
func (r *commentRepository) ListForPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) UpdateText(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Model(comment).Update("text", comment.Text).Error; err != nil {
		r.changes.Failed(ctx, "update", err)
		return models.NewInternalError(err)
	}
	r.changes.Updated(ctx, comment.ID)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		r.changes.Failed(ctx, "delete", res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	r.changes.Deleted(ctx, id)
	return nil
}

// AdminList returns comments newest first, filtered by text search.
func (r *commentRepository) AdminList(ctx context.Context, f AdminFilter) ([]*models.Comment, error) {
	db := readDB(r.db).WithContext(ctx).Preload("Author").Preload("Post")
	if f.Query != "" {
		db = db.Where("LOWER(text) LIKE ? ESCAPE '\\'", containsPattern(f.Query))
	}
	var comments []*models.Comment
	if err := db.Order("created_at DESC, id DESC").Limit(f.limit()).Offset(f.offset()).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
