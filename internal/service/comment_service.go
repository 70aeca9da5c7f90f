package service

import (
	"context"
	"errors"
	"time"

	"blogicum/internal/featureflags"
	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
	"blogicum/internal/visibility"
)

// ErrCommentsClosed is returned by Add while the comments_closed flag is on.
var ErrCommentsClosed = errors.New("comments are closed")

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	flags       *featureflags.Manager
	now         func() time.Time
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		flags:       flags,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add attaches a comment by authorID to the post. A post the commenter
// cannot see is reported as not found.
func (s *CommentService) Add(ctx context.Context, postID, authorID uint, form validation.CommentForm) (*models.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(post, authorID, s.now()) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if s.flags.Enabled(featureflags.CommentsClosed, authorID) {
		return nil, ErrCommentsClosed
	}

	text, err := form.Clean()
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Text:     text,
		AuthorID: authorID,
		PostID:   post.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()
	return comment, nil
}

// Get loads a comment that must belong to postID.
func (s *CommentService) Get(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	return s.commentRepo.GetForPost(ctx, postID, commentID)
}

// Update replaces the comment text. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, editorID uint, comment *models.Comment, form validation.CommentForm) error {
	if !comment.IsAuthoredBy(editorID) {
		return models.NewForbiddenError("You can only update your own comments")
	}
	text, err := form.Clean()
	if err != nil {
		return err
	}
	comment.Text = text
	return s.commentRepo.UpdateText(ctx, comment)
}

// Delete removes the comment. Only the author may delete.
func (s *CommentService) Delete(ctx context.Context, editorID uint, comment *models.Comment) error {
	if !comment.IsAuthoredBy(editorID) {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, comment.ID)
}
