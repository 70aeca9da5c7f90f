package repository

import (
	"context"
	"log/slog"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const postOrder = "posts.pub_date DESC, posts.id DESC"

// PostQuery describes a post listing: visibility filter, author and
// category filters, comment counts and the requested page. The zero
// value lists every post, first page.
type PostQuery struct {
	publicAt     *time.Time
	authorID     uint
	categoryID   uint
	commentCount bool
	page         int
	pageSize     int
}

// NewPostQuery starts an unfiltered query.
func NewPostQuery() PostQuery {
	return PostQuery{page: 1, pageSize: PageSize}
}

// Public keeps only posts that are published, due at now and whose
// category is published.
func (q PostQuery) Public(now time.Time) PostQuery {
	q.publicAt = &now
	return q
}

// ByAuthor keeps only posts written by userID.
func (q PostQuery) ByAuthor(userID uint) PostQuery {
	q.authorID = userID
	return q
}

// InCategory keeps only posts of categoryID.
func (q PostQuery) InCategory(categoryID uint) PostQuery {
	q.categoryID = categoryID
	return q
}

// WithCommentCount fills Post.CommentCount.
func (q PostQuery) WithCommentCount() PostQuery {
	q.commentCount = true
	return q
}

// Page selects the page number; out of range values are clamped.
func (q PostQuery) Page(n int) PostQuery {
	q.page = n
	return q
}

// PageSize overrides the number of posts per page.
func (q PostQuery) PageSize(n int) PostQuery {
	q.pageSize = n
	return q
}

// PublicAt returns the visibility cutoff, if the query is public.
func (q PostQuery) PublicAt() (time.Time, bool) {
	if q.publicAt == nil {
		return time.Time{}, false
	}
	return *q.publicAt, true
}

// AuthorID returns the author filter, zero when unset.
func (q PostQuery) AuthorID() uint { return q.authorID }

// CategoryID returns the category filter, zero when unset.
func (q PostQuery) CategoryID() uint { return q.categoryID }

// PageNumber returns the requested, unclamped page.
func (q PostQuery) PageNumber() int { return q.page }

func (q PostQuery) size() int {
	if q.pageSize <= 0 {
		return PageSize
	}
	return q.pageSize
}

func (q PostQuery) apply(db *gorm.DB) *gorm.DB {
	if q.publicAt != nil {
		db = publicScope(*q.publicAt)(db)
	}
	if q.authorID != 0 {
		db = db.Where("posts.author_id = ?", q.authorID)
	}
	if q.categoryID != 0 {
		db = db.Where("posts.category_id = ?", q.categoryID)
	}
	return db
}

// publicScope filters posts down to what anonymous visitors may see.
func publicScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ? AND posts.pub_date <= ? AND categories.is_published = ?", true, now, true)
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").Preload("Location")
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetPublicByID(ctx context.Context, id uint, now time.Time) (*models.Post, error)
	FindPosts(ctx context.Context, q PostQuery) (*PostPage, error)
	Delete(ctx context.Context, id uint) error
	SetPublished(ctx context.Context, id uint, published bool) error
	AdminList(ctx context.Context, f AdminFilter) ([]*models.Post, error)
}

type postRepository struct {
	db      *gorm.DB
	changes *observability.ChangeLog
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db:      db,
		changes: observability.NewChangeLog("posts"),
		metrics: observability.NewDatabaseMetrics("posts"),
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		r.changes.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.changes.Created(ctx, post.ID, slog.Uint64("author_id", uint64(post.AuthorID)))
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("update")()
	err := r.db.WithContext(ctx).
		Model(post).
		Omit(clause.Associations).
		Select("title", "text", "pub_date", "image", "is_published", "category_id", "location_id").
		Updates(post).Error
	if err != nil {
		r.changes.Failed(ctx, "update", err)
		return models.NewInternalError(err)
	}
	r.changes.Updated(ctx, post.ID)
	return nil
}

// GetByID loads a post regardless of its visibility.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	ctx, span := observability.StartQuerySpan(ctx, "posts", "GetByID")
	defer span.End()
	defer r.metrics.TrackQuery("get")()

	var post models.Post
	if err := withRelations(readDB(r.db).WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, wrapLookupError(err, "Post", id)
	}
	return &post, nil
}

// GetPublicByID loads a post only if it is public at now.
func (r *postRepository) GetPublicByID(ctx context.Context, id uint, now time.Time) (*models.Post, error) {
	ctx, span := observability.StartQuerySpan(ctx, "posts", "GetPublicByID")
	defer span.End()
	defer r.metrics.TrackQuery("get")()

	var post models.Post
	err := withRelations(readDB(r.db).WithContext(ctx)).
		Scopes(publicScope(now)).
		Where("posts.id = ?", id).
		Select("posts.*").
		First(&post).Error
	if err != nil {
		return nil, wrapLookupError(err, "Post", id)
	}
	return &post, nil
}

// FindPosts evaluates q and returns the requested page, ordered by
// pub_date descending. The page number is clamped into range.
func (r *postRepository) FindPosts(ctx context.Context, q PostQuery) (*PostPage, error) {
	ctx, span := observability.StartQuerySpan(ctx, "posts", "FindPosts")
	defer span.End()
	defer r.metrics.TrackQuery("list")()

	db := readDB(r.db).WithContext(ctx)

	var total int64
	if err := q.apply(db.Model(&models.Post{})).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	size := q.size()
	page := &PostPage{
		Total:    total,
		PerPage:  size,
		NumPages: NumPages(total, size),
	}
	page.Number = ClampPage(q.page, page.NumPages)
	if total == 0 {
		page.Posts = []*models.Post{}
		return page, nil
	}

	sel := "posts.*"
	if q.commentCount {
		sel += ", (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count"
	}
	var posts []*models.Post
	err := withRelations(q.apply(db.Model(&models.Post{}))).
		Select(sel).
		Order(postOrder).
		Limit(size).
		Offset(page.Offset()).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	page.Posts = posts
	return page, nil
}

// Delete removes the post and its comments in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return err
		}
		r.changes.Failed(ctx, "delete", err)
		return models.NewInternalError(err)
	}
	r.changes.Deleted(ctx, id)
	return nil
}

func (r *postRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.changes.Updated(ctx, id, slog.Bool("is_published", published))
	return nil
}

// AdminList returns posts newest first, filtered by title/text search,
// publication flag and category.
func (r *postRepository) AdminList(ctx context.Context, f AdminFilter) ([]*models.Post, error) {
	db := withRelations(readDB(r.db).WithContext(ctx))
	if f.Query != "" {
		like := containsPattern(f.Query)
		db = db.Where("(LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.text) LIKE ? ESCAPE '\\')", like, like)
	}
	if f.IsPublished != nil {
		db = db.Where("posts.is_published = ?", *f.IsPublished)
	}
	if f.CategoryID != 0 {
		db = db.Where("posts.category_id = ?", f.CategoryID)
	}
	var posts []*models.Post
	if err := db.Order(postOrder).Limit(f.limit()).Offset(f.offset()).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
