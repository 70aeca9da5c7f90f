// Package service holds the blog's use cases between handlers and repositories.
package service

import (
	"context"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"
	"blogicum/internal/validation"
	"blogicum/internal/visibility"

	"go.opentelemetry.io/otel/attribute"
)

// ImageStore saves and removes uploaded post images.
type ImageStore interface {
	Save(ctx context.Context, in UploadImageInput) (*StoredImage, error)
	Remove(rel string)
}

type PostService struct {
	posts      repository.PostRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	locations  repository.LocationRepository
	users      repository.UserRepository
	images     ImageStore
	now        func() time.Time
}

// PostChoices are the select options of the post form.
type PostChoices struct {
	Categories []*models.Category
	Locations  []*models.Location
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	categories repository.CategoryRepository,
	locations repository.LocationRepository,
	users repository.UserRepository,
	images ImageStore,
) *PostService {
	return &PostService{
		posts:      posts,
		comments:   comments,
		categories: categories,
		locations:  locations,
		users:      users,
		images:     images,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Now is the clock visibility is evaluated against.
func (s *PostService) Now() time.Time {
	return s.now()
}

// Feed lists public posts for the home page.
func (s *PostService) Feed(ctx context.Context, page int) (*repository.PostPage, error) {
	ctx, span := observability.StartFeedSpan(ctx, "home", attribute.Int("blog.page", page))
	defer span.End()
	q := repository.NewPostQuery().Public(s.now()).WithCommentCount().Page(page)
	return s.posts.FindPosts(ctx, q)
}

// CategoryFeed lists public posts of a published category.
func (s *PostService) CategoryFeed(ctx context.Context, slug string, page int) (*models.Category, *repository.PostPage, error) {
	ctx, span := observability.StartFeedSpan(ctx, "category",
		attribute.String("blog.category", slug), attribute.Int("blog.page", page))
	defer span.End()

	category, err := s.categories.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	q := repository.NewPostQuery().Public(s.now()).InCategory(category.ID).WithCommentCount().Page(page)
	posts, err := s.posts.FindPosts(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return category, posts, nil
}

// ProfileFeed lists a user's posts. Owners see all of theirs; everyone
// else sees the public ones.
func (s *PostService) ProfileFeed(ctx context.Context, username string, viewerID uint, page int) (*models.User, *repository.PostPage, error) {
	ctx, span := observability.StartFeedSpan(ctx, "profile",
		attribute.String("blog.profile", username), attribute.Int("blog.page", page))
	defer span.End()

	profile, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if profile == nil {
		return nil, nil, models.NewNotFoundError("User", username)
	}

	q := repository.NewPostQuery().ByAuthor(profile.ID).WithCommentCount().Page(page)
	if !visibility.ShowsAllOnProfile(profile.ID, viewerID) {
		q = q.Public(s.now())
	}
	posts, err := s.posts.FindPosts(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return profile, posts, nil
}

// Detail loads a post for viewerID with its comments. Authors reach their
// own hidden posts; anyone else falls back to the public lookup.
func (s *PostService) Detail(ctx context.Context, id, viewerID uint) (*models.Post, []*models.Comment, error) {
	ctx, span := observability.StartFeedSpan(ctx, "detail", attribute.Int64("blog.post_id", int64(id)))
	defer span.End()

	now := s.now()
	var post *models.Post
	if viewerID != visibility.Anonymous {
		p, err := s.posts.GetByID(ctx, id)
		if err != nil && !models.HasCode(err, models.CodeNotFound) {
			return nil, nil, err
		}
		if p != nil && visibility.IsVisible(p, viewerID, now) {
			post = p
		}
	}
	if post == nil {
		p, err := s.posts.GetPublicByID(ctx, id, now)
		if err != nil {
			return nil, nil, err
		}
		post = p
	}

	comments, err := s.comments.ListForPost(ctx, post.ID)
	if err != nil {
		return nil, nil, err
	}
	return post, comments, nil
}

// GetPost loads a post regardless of visibility, for edit and delete.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Choices loads the category and location options of the post form.
func (s *PostService) Choices(ctx context.Context) (*PostChoices, error) {
	categories, err := s.categories.All(ctx)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.All(ctx)
	if err != nil {
		return nil, err
	}
	return &PostChoices{Categories: categories, Locations: locations}, nil
}

// Create validates form and stores a new post by authorID. Invalid input
// is reported as models.FieldErrors.
func (s *PostService) Create(ctx context.Context, authorID uint, form validation.PostForm, upload *UploadImageInput) (*models.Post, error) {
	in, err := s.clean(ctx, form)
	if err != nil {
		return nil, err
	}

	post := &models.Post{AuthorID: authorID}
	applyPostInput(post, in)

	stored, err := s.storeImage(ctx, upload)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = stored.Path
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(stored.Path)
		}
		return nil, err
	}
	observability.PostsCreated.Inc()
	return post, nil
}

// Update applies form to post. Only the author may edit.
func (s *PostService) Update(ctx context.Context, editorID uint, post *models.Post, form validation.PostForm, upload *UploadImageInput) error {
	if !post.IsAuthoredBy(editorID) {
		return models.NewForbiddenError("You can only edit your own posts")
	}
	in, err := s.clean(ctx, form)
	if err != nil {
		return err
	}

	stored, err := s.storeImage(ctx, upload)
	if err != nil {
		return err
	}

	oldImage := post.Image
	applyPostInput(post, in)
	switch {
	case stored != nil:
		post.Image = stored.Path
	case in.ClearImage:
		post.Image = ""
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(stored.Path)
		}
		post.Image = oldImage
		return err
	}
	if oldImage != "" && oldImage != post.Image && s.images != nil {
		s.images.Remove(oldImage)
	}
	return nil
}

// Delete removes post with its comments. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, editorID uint, post *models.Post) error {
	if !post.IsAuthoredBy(editorID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	if post.Image != "" && s.images != nil {
		s.images.Remove(post.Image)
	}
	return nil
}

// clean runs the form rules and checks that the chosen category and
// location exist.
func (s *PostService) clean(ctx context.Context, form validation.PostForm) (validation.PostInput, error) {
	in, err := form.Clean()
	fe, ok := models.AsFieldErrors(err)
	if err != nil && !ok {
		return in, err
	}
	if fe == nil {
		fe = models.FieldErrors{}
	}

	if in.CategoryID != 0 {
		if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return in, err
			}
			fe.Add("category", validation.MsgInvalidChoice)
		}
	}
	if in.LocationID != nil {
		if _, err := s.locations.GetByID(ctx, *in.LocationID); err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return in, err
			}
			fe.Add("location", validation.MsgInvalidChoice)
		}
	}
	if fe.Any() {
		return in, fe
	}
	return in, nil
}

// storeImage saves upload when one was sent. A rejected file becomes an
// error on the image field.
func (s *PostService) storeImage(ctx context.Context, upload *UploadImageInput) (*StoredImage, error) {
	if upload == nil || len(upload.Content) == 0 || s.images == nil {
		return nil, nil
	}
	stored, err := s.images.Save(ctx, *upload)
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			fe := models.FieldErrors{}
			fe.Add("image", validationMessage(err))
			return nil, fe
		}
		return nil, err
	}
	return stored, nil
}

func applyPostInput(post *models.Post, in validation.PostInput) {
	post.Title = in.Title
	post.Text = in.Text
	post.PubDate = in.PubDate
	post.CategoryID = in.CategoryID
	post.LocationID = in.LocationID
	post.IsPublished = in.IsPublished
}
